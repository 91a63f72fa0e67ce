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
	"khobor.news/khobor/internal/fetch"
	"khobor.news/khobor/internal/logging"
	"khobor.news/khobor/internal/scrape"
	"khobor.news/khobor/internal/sources"
)

// runProcess runs one full ingest cycle: scrape every selected source,
// fold the raw rows into the deduplicated store, then compact residual
// same-URL duplicates. A stage failure aborts the remaining stages.
func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Minute, "Command timeout")
	limit := fs.Int("limit", 0, "Maximum articles per source; 0 means no cap")
	noGeocode := fs.Bool("no-geocode", false, "Skip geolocation of newly inserted articles")
	var selected stringListFlag
	fs.Var(&selected, "source", "Source key to scrape (repeatable; default all)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "process does not accept positional arguments")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
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

	registry, err := sources.Load(cfg.SourcesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sources: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("process command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	fetcher := fetch.NewClient(fetch.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.ScrapeUserAgent,
	})
	orchestrator := scrape.NewOrchestrator(registry, fetcher, pool, logger, scrape.AdapterOptions{
		DetailConcurrency: cfg.DetailConcurrency,
	})
	engine := dedup.NewEngine(pool, pool, buildLocator(cfg, logger, *noGeocode), logger, dedup.Options{})

	report, err := orchestrator.Run(ctx, scrape.RunOptions{
		Sources:        selected,
		LimitPerSource: *limit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("scrape stage failed")
		fmt.Fprintf(os.Stderr, "Process failed during scrape: %v\n", err)
		return 1
	}
	for _, failure := range report.Errors {
		fmt.Fprintf(os.Stderr, "source failed: %s\n", failure)
	}
	fmt.Printf(
		"scrape sources_ok=%d sources_failed=%d articles=%d saved=%d duration=%.1fs\n",
		report.SourcesOK,
		report.SourcesFailed,
		report.TotalArticles,
		report.TotalSaved,
		report.DurationSeconds,
	)

	dedupStats, err := engine.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("dedup stage failed")
		fmt.Fprintf(os.Stderr, "Process failed during dedup: %v\n", err)
		return 1
	}
	fmt.Printf(
		"dedup processed=%d duplicates_found=%d unique_added=%d updated=%d errors=%d duration=%.1fs\n",
		dedupStats.Processed,
		dedupStats.DuplicatesFound,
		dedupStats.UniqueAdded,
		dedupStats.Updated,
		dedupStats.Errors,
		dedupStats.DurationSeconds,
	)

	compactStats, err := engine.Compact(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("compact stage failed")
		fmt.Fprintf(os.Stderr, "Process failed during compact: %v\n", err)
		return 1
	}
	fmt.Printf(
		"compact checked=%d duplicates_removed=%d errors=%d duration=%.1fs\n",
		compactStats.Checked,
		compactStats.DuplicatesRemoved,
		compactStats.Errors,
		compactStats.DurationSeconds,
	)

	logger.Info().
		Int("scraped", report.TotalSaved).
		Int("unique_added", dedupStats.UniqueAdded).
		Int("duplicates_found", dedupStats.DuplicatesFound).
		Int("duplicates_removed", compactStats.DuplicatesRemoved).
		Msg("process completed")
	return 0
}
