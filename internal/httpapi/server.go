// Package httpapi serves the read API over the canonical article store
// plus token-protected endpoints that trigger ingest work.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"khobor.news/khobor/internal/db"
	"khobor.news/khobor/internal/dedup"
	"khobor.news/khobor/internal/scrape"
	"khobor.news/khobor/internal/sources"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	defaultRecent    = 50
	maxRecent        = 500
	defaultMapLimit  = 1000
	maxMapLimit      = 5000
)

// Store is the slice of the database pool the handlers read and write.
type Store interface {
	Ping(ctx context.Context) error
	SearchArticles(ctx context.Context, opts db.ArticleSearchOptions) ([]db.Article, error)
	GeolocatedArticles(ctx context.Context, opts db.ArticleSearchOptions) ([]db.Article, error)
	ArticlesWithinRadius(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]db.Article, error)
	RecentArticles(ctx context.Context, limit int) ([]db.Article, error)
	ListCategories(ctx context.Context) ([]string, error)
	QueryIngestStats(ctx context.Context) (*db.IngestStats, error)
	InsertRawBatch(ctx context.Context, records []db.RawArticle) (int, error)
}

// ScrapeRunner starts scrape runs for the admin API.
type ScrapeRunner interface {
	Run(ctx context.Context, opts scrape.RunOptions) (*scrape.Report, error)
}

// DedupRunner runs the primary dedup pass and compaction.
type DedupRunner interface {
	Run(ctx context.Context) (*dedup.RunStats, error)
	Compact(ctx context.Context) (*dedup.CompactionStats, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// AdminTokenHash is the bcrypt hash admin requests are verified
	// against. Empty disables the admin endpoints with a 503.
	AdminTokenHash string
}

type Server struct {
	store    Store
	registry *sources.Registry
	scraper  ScrapeRunner
	deduper  DedupRunner
	logger   zerolog.Logger
	opts     Options
}

func NewServer(store Store, registry *sources.Registry, scraper ScrapeRunner, deduper DedupRunner, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8080
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Server{
		store:    store,
		registry: registry,
		scraper:  scraper,
		deduper:  deduper,
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  allowedOrigins,
			AdminTokenHash:  strings.TrimSpace(opts.AdminTokenHash),
		},
	}
}

// Start runs the server until ctx is canceled, then drains in-flight
// requests for up to ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("http server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api/v1")
	api.GET("/news", s.handleNews)
	api.GET("/news/recent", s.handleNewsRecent)
	api.GET("/news/categories", s.handleNewsCategories)
	api.GET("/news/geo/bounds", s.handleNewsGeoBounds)
	api.GET("/news/geo/radius", s.handleNewsGeoRadius)
	api.GET("/news/map-data", s.handleNewsMapData)
	api.GET("/stats", s.handleStats)
	api.GET("/sources", s.handleSources)

	admin := api.Group("", s.requireAdmin())
	admin.POST("/scrape", s.handleScrape)
	admin.POST("/dedup", s.handleDedup)
	admin.POST("/articles", s.handleSubmitArticle)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("health check ping failed")
		return serviceUnavailable(c, "Database unreachable")
	}
	return success(c, map[string]any{
		"service":  "khobor",
		"database": "ok",
	})
}

// background runs fn detached from the triggering request so a client
// disconnect cannot cancel ingest work already underway.
func (s *Server) background(job string, fn func(ctx context.Context)) {
	logger := s.logger.With().Str("job", job).Logger()
	go func() {
		logger.Info().Msg("background job started")
		fn(context.Background())
		logger.Info().Msg("background job finished")
	}()
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseOptionalFloat(raw string) (*float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	return &value, nil
}

func parseRequiredFloat(raw string) (float64, error) {
	value, err := parseOptionalFloat(raw)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, fmt.Errorf("is required")
	}
	return *value, nil
}

func parseTimeFilter(raw string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		utc := ts.UTC()
		return &utc, nil
	}

	if day, err := time.Parse("2006-01-02", trimmed); err == nil {
		utc := day.UTC()
		if endOfDay {
			utc = utc.Add((24 * time.Hour) - time.Nanosecond)
		}
		return &utc, nil
	}

	return nil, fmt.Errorf("invalid time format")
}
