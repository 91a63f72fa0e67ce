package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"KH_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"KH_DB_MAX_CONNS" default:"8"`

	// Scraper settings. DetailConcurrency bounds simultaneous article-page
	// fetches within one source.
	ScrapeUserAgent   string        `envconfig:"SCRAPE_USER_AGENT" default:"khobor-news-scraper/1.0 (+https://khobor.news)"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	DetailConcurrency int           `envconfig:"DETAIL_CONCURRENCY" default:"5"`
	SourcesFile       string        `envconfig:"SOURCES_FILE" default:""`

	// Geocoder settings. GeocodeInterval is the minimum spacing between
	// outbound geocoding calls across all callers of one resolver.
	GeocodeBaseURL   string        `envconfig:"GEOCODE_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	GeocodeUserAgent string        `envconfig:"GEOCODE_USER_AGENT" default:"khobor-news-geocoder/1.0"`
	GeocodeTimeout   time.Duration `envconfig:"GEOCODE_TIMEOUT" default:"10s"`
	GeocodeInterval  time.Duration `envconfig:"GEOCODE_INTERVAL" default:"1s"`

	// API settings. AdminTokenHash is a bcrypt hash produced by
	// `khobor hash-token`; when empty the mutating endpoints are disabled.
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
	AdminTokenHash     string `envconfig:"ADMIN_TOKEN_HASH" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("KH_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("KH_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("KH_DB_MIN_CONNS (%d) cannot exceed KH_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be > 0")
	}
	if c.DetailConcurrency < 1 {
		return fmt.Errorf("DETAIL_CONCURRENCY must be >= 1")
	}
	if strings.TrimSpace(c.GeocodeBaseURL) == "" {
		return fmt.Errorf("GEOCODE_BASE_URL is required")
	}
	if c.GeocodeTimeout <= 0 {
		return fmt.Errorf("GEOCODE_TIMEOUT must be > 0")
	}
	if c.GeocodeInterval <= 0 {
		return fmt.Errorf("GEOCODE_INTERVAL must be > 0")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

// AdminAPIEnabled reports whether the token-protected endpoints are usable.
func (c *Config) AdminAPIEnabled() bool {
	return c != nil && strings.TrimSpace(c.AdminTokenHash) != ""
}
