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
	"khobor.news/khobor/internal/fetch"
	"khobor.news/khobor/internal/logging"
	"khobor.news/khobor/internal/scrape"
	"khobor.news/khobor/internal/sources"
)

func runScrape(args []string) int {
	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	limit := fs.Int("limit", 0, "Maximum articles per source; 0 means no cap")
	var selected stringListFlag
	fs.Var(&selected, "source", "Source key to scrape (repeatable; default all)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "scrape does not accept positional arguments")
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
		logger.Error().Err(err).Msg("scrape command failed to connect to database")
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

	report, err := orchestrator.Run(ctx, scrape.RunOptions{
		Sources:        selected,
		LimitPerSource: *limit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("scrape failed")
		fmt.Fprintf(os.Stderr, "Scrape failed: %v\n", err)
		return 1
	}

	for _, failure := range report.Errors {
		fmt.Fprintf(os.Stderr, "source failed: %s\n", failure)
	}

	logger.Info().
		Int("sources_ok", report.SourcesOK).
		Int("sources_failed", report.SourcesFailed).
		Int("articles", report.TotalArticles).
		Int("saved", report.TotalSaved).
		Float64("duration_seconds", report.DurationSeconds).
		Msg("scrape completed")
	fmt.Printf(
		"scrape sources_ok=%d sources_failed=%d articles=%d saved=%d duration=%.1fs\n",
		report.SourcesOK,
		report.SourcesFailed,
		report.TotalArticles,
		report.TotalSaved,
		report.DurationSeconds,
	)

	if report.SourcesOK == 0 && report.SourcesFailed > 0 {
		return 1
	}
	return 0
}
