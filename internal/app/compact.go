package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"khobor.news/khobor/internal/cli"
	"khobor.news/khobor/internal/config"
	"khobor.news/khobor/internal/db"
	"khobor.news/khobor/internal/dedup"
	"khobor.news/khobor/internal/logging"
)

func runCompact(args []string) int {
	fs := flag.NewFlagSet("compact", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "compact does not accept positional arguments")
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
		logger.Error().Err(err).Msg("compact command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	// Compaction never inserts, so no locator is needed.
	engine := dedup.NewEngine(pool, pool, nil, logger, dedup.Options{})

	stats, err := engine.Compact(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("compact failed")
		fmt.Fprintf(os.Stderr, "Compact failed: %v\n", err)
		return 1
	}

	logger.Info().
		Int("checked", stats.Checked).
		Int("duplicates_removed", stats.DuplicatesRemoved).
		Int("errors", stats.Errors).
		Msg("compaction completed")
	fmt.Printf(
		"compact checked=%d duplicates_removed=%d errors=%d duration=%.1fs\n",
		stats.Checked,
		stats.DuplicatesRemoved,
		stats.Errors,
		stats.DurationSeconds,
	)
	return 0
}
