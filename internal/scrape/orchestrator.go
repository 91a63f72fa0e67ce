package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"khobor.news/khobor/internal/clock"
	"khobor.news/khobor/internal/db"
	"khobor.news/khobor/internal/sources"
)

// RawStore persists scraped articles.
type RawStore interface {
	InsertRawBatch(ctx context.Context, articles []db.RawArticle) (int, error)
}

// SourceResult is one source's slot in a run report. A slot can carry
// both an article count and an error when scraping succeeded but the
// batch write failed.
type SourceResult struct {
	Source   string `json:"source"`
	Articles int    `json:"articles"`
	Saved    int    `json:"saved"`
	Error    string `json:"error,omitempty"`
}

// Report aggregates one scrape run.
type Report struct {
	TotalArticles   int            `json:"total_articles"`
	TotalSaved      int            `json:"total_saved"`
	SourcesOK       int            `json:"sources_ok"`
	SourcesFailed   int            `json:"sources_failed"`
	Sources         []SourceResult `json:"sources"`
	Errors          []string       `json:"errors,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// RunOptions selects what a scrape run covers.
type RunOptions struct {
	// Sources restricts the run to these keys; empty means every
	// configured source. An unknown key fails the run before any
	// scraping starts.
	Sources []string

	// LimitPerSource caps feed candidates per source; zero means no cap.
	LimitPerSource int
}

// Orchestrator fans scraping out across sources, one goroutine per
// source, with per-source failure isolation: a slot records either a
// result or an error, and no source's failure disturbs another's.
type Orchestrator struct {
	registry    *sources.Registry
	fetcher     Fetcher
	store       RawStore
	logger      zerolog.Logger
	adapterOpts AdapterOptions
}

// NewOrchestrator builds an orchestrator over the given registry,
// fetcher, and raw store.
func NewOrchestrator(registry *sources.Registry, fetcher Fetcher, store RawStore, logger zerolog.Logger, opts AdapterOptions) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		fetcher:     fetcher,
		store:       store,
		logger:      logger,
		adapterOpts: opts,
	}
}

// Run scrapes the selected sources concurrently and writes each
// source's articles to the raw store in one batch.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	if o == nil || o.registry == nil || o.fetcher == nil || o.store == nil {
		return nil, fmt.Errorf("scrape orchestrator is not initialized")
	}

	selected, err := o.selectSources(opts.Sources)
	if err != nil {
		return nil, err
	}

	report := &Report{StartedAt: clock.UTC()}

	slots := make([]SourceResult, len(selected))
	var wg sync.WaitGroup
	for i, source := range selected {
		wg.Add(1)
		go func(i int, source sources.Source) {
			defer wg.Done()
			slots[i] = o.scrapeSource(ctx, source, opts.LimitPerSource)
		}(i, source)
	}
	wg.Wait()

	report.Sources = slots
	for _, slot := range slots {
		report.TotalArticles += slot.Articles
		report.TotalSaved += slot.Saved
		if slot.Error != "" {
			report.SourcesFailed++
			report.Errors = append(report.Errors, slot.Source+": "+slot.Error)
		} else {
			report.SourcesOK++
		}
	}
	report.FinishedAt = clock.UTC()
	report.DurationSeconds = report.FinishedAt.Sub(report.StartedAt).Seconds()

	o.logger.Info().
		Int("sources", len(selected)).
		Int("sources_failed", report.SourcesFailed).
		Int("articles", report.TotalArticles).
		Int("saved", report.TotalSaved).
		Float64("duration_seconds", report.DurationSeconds).
		Msg("scrape run finished")
	return report, nil
}

func (o *Orchestrator) selectSources(keys []string) ([]sources.Source, error) {
	if len(keys) == 0 {
		return o.registry.All(), nil
	}
	selected := make([]sources.Source, 0, len(keys))
	for _, key := range keys {
		source, err := o.registry.Get(key)
		if err != nil {
			return nil, err
		}
		selected = append(selected, source)
	}
	return selected, nil
}

// scrapeSource runs one source end to end and never returns an error;
// failures land in the slot.
func (o *Orchestrator) scrapeSource(ctx context.Context, source sources.Source, limit int) SourceResult {
	result := SourceResult{Source: source.Key}

	adapter := NewAdapter(source, o.fetcher, o.logger, o.adapterOpts)
	articles, err := adapter.Scrape(ctx, limit)
	if err != nil {
		result.Error = err.Error()
		o.logger.Error().Err(err).Str("source", source.Key).Msg("source scrape failed")
		return result
	}
	result.Articles = len(articles)

	if len(articles) > 0 {
		saved, err := o.store.InsertRawBatch(ctx, articles)
		if err != nil {
			result.Error = fmt.Sprintf("store articles: %v", err)
			o.logger.Error().Err(err).Str("source", source.Key).Msg("raw batch write failed")
			return result
		}
		result.Saved = saved
	}

	o.logger.Info().
		Str("source", source.Key).
		Int("articles", result.Articles).
		Int("saved", result.Saved).
		Msg("source stored")
	return result
}
