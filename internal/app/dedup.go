package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"khobor.news/khobor/internal/cli"
	"khobor.news/khobor/internal/config"
	"khobor.news/khobor/internal/db"
	"khobor.news/khobor/internal/dedup"
	"khobor.news/khobor/internal/geo"
	"khobor.news/khobor/internal/logging"
)

func runDedup(args []string) int {
	fs := flag.NewFlagSet("dedup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	batchSize := fs.Int("batch-size", 100, "Raw rows fetched per page")
	noGeocode := fs.Bool("no-geocode", false, "Skip geolocation of newly inserted articles")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "dedup does not accept positional arguments")
		return 2
	}
	if *batchSize <= 0 {
		fmt.Fprintln(os.Stderr, "--batch-size must be > 0")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("dedup command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	if backlog, err := pool.CountRaw(ctx); err == nil {
		logger.Info().Int64("raw_total", backlog).Msg("starting dedup pass")
	}

	engine := dedup.NewEngine(pool, pool, buildLocator(cfg, logger, *noGeocode), logger, dedup.Options{
		BatchSize: *batchSize,
	})

	stats, err := engine.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("dedup failed")
		fmt.Fprintf(os.Stderr, "Dedup failed: %v\n", err)
		return 1
	}

	logger.Info().
		Int("processed", stats.Processed).
		Int("duplicates_found", stats.DuplicatesFound).
		Int("unique_added", stats.UniqueAdded).
		Int("updated", stats.Updated).
		Int("errors", stats.Errors).
		Msg("dedup completed")
	fmt.Printf(
		"dedup processed=%d duplicates_found=%d unique_added=%d updated=%d errors=%d duration=%.1fs\n",
		stats.Processed,
		stats.DuplicatesFound,
		stats.UniqueAdded,
		stats.Updated,
		stats.Errors,
		stats.DurationSeconds,
	)
	return 0
}

// buildLocator wires the shared geocoding resolver, or nothing when
// geocoding is switched off.
func buildLocator(cfg *config.Config, logger zerolog.Logger, disabled bool) dedup.Locator {
	if disabled {
		return nil
	}
	client := geo.NewClient(geo.ClientOptions{
		BaseURL:   cfg.GeocodeBaseURL,
		UserAgent: cfg.GeocodeUserAgent,
		Timeout:   cfg.GeocodeTimeout,
	})
	return geo.NewResolver(client, logger, geo.ResolverOptions{
		MinInterval: cfg.GeocodeInterval,
	})
}
