package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"khobor.news/khobor/internal/clock"
	"khobor.news/khobor/internal/db"
)

const (
	titleMatchThreshold = 0.90
	pairMatchThreshold  = 0.70
	candidateLimit      = 10
	defaultBatchSize    = 100
	progressLogEvery    = 100
)

// RawSource pages the append-only raw store in raw_id order.
type RawSource interface {
	FetchRawBatch(ctx context.Context, afterID int64, limit int) ([]db.RawArticle, error)
}

// CanonicalStore is the unique-keyed article store the engine maintains.
type CanonicalStore interface {
	FindBySourceURL(ctx context.Context, sourceURL string) (*db.Article, error)
	SearchTitleCandidates(ctx context.Context, title string, limit int) ([]db.Article, error)
	InsertArticle(ctx context.Context, article *db.Article) (db.InsertOutcome, error)
	ReplaceArticle(ctx context.Context, articleID int64, article *db.Article) error
	DeleteArticle(ctx context.Context, articleID int64) error
	DuplicateSourceURLs(ctx context.Context) ([]string, error)
	ArticlesBySourceURL(ctx context.Context, sourceURL string) ([]db.Article, error)
}

// Locator resolves a best-effort coordinate pair from article text.
type Locator interface {
	ResolveText(ctx context.Context, text string) (lat, lng float64, ok bool)
}

// Engine runs the primary dedup pass and the compaction pass. Records
// are processed strictly sequentially; every decision reads then writes
// canonical state, which only holds up within one process.
type Engine struct {
	raw       RawSource
	store     CanonicalStore
	locator   Locator
	logger    zerolog.Logger
	batchSize int
}

// Options tunes the engine.
type Options struct {
	// BatchSize is the number of raw rows fetched per page. Defaults to 100.
	BatchSize int
}

// NewEngine wires a dedup engine. A nil locator disables geolocation of
// newly inserted articles.
func NewEngine(raw RawSource, store CanonicalStore, locator Locator, logger zerolog.Logger, opts Options) *Engine {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Engine{
		raw:       raw,
		store:     store,
		locator:   locator,
		logger:    logger,
		batchSize: batchSize,
	}
}

// RunStats is the read model of one primary dedup pass.
type RunStats struct {
	Processed       int       `json:"processed"`
	DuplicatesFound int       `json:"duplicates_found"`
	UniqueAdded     int       `json:"unique_added"`
	Updated         int       `json:"updated"`
	Errors          int       `json:"errors"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

func (s *RunStats) finish() {
	s.FinishedAt = clock.UTC()
	s.DurationSeconds = s.FinishedAt.Sub(s.StartedAt).Seconds()
}

// Run drains the raw store through the per-record dedup algorithm.
// Per-record failures are counted and skipped; a failure fetching a raw
// batch aborts the run and returns the partial statistics with the
// causing error.
func (e *Engine) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{StartedAt: clock.UTC()}
	if e == nil || e.raw == nil || e.store == nil {
		stats.finish()
		return stats, fmt.Errorf("dedup engine is not initialized")
	}

	e.logger.Info().Int("batch_size", e.batchSize).Msg("starting deduplication run")

	seenURLs := make(map[string]struct{})
	seenFingerprints := make(map[string]struct{})

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			stats.finish()
			return stats, err
		}

		batch, err := e.raw.FetchRawBatch(ctx, afterID, e.batchSize)
		if err != nil {
			stats.finish()
			return stats, fmt.Errorf("fetch raw batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, raw := range batch {
			afterID = raw.RawID
			e.processOne(ctx, raw, seenURLs, seenFingerprints, stats)

			if stats.Processed%progressLogEvery == 0 {
				e.logger.Info().
					Int("processed", stats.Processed).
					Int("unique_added", stats.UniqueAdded).
					Int("duplicates_found", stats.DuplicatesFound).
					Msg("deduplication progress")
			}
		}
	}

	stats.finish()
	e.logger.Info().
		Int("processed", stats.Processed).
		Int("unique_added", stats.UniqueAdded).
		Int("duplicates_found", stats.DuplicatesFound).
		Int("updated", stats.Updated).
		Int("errors", stats.Errors).
		Float64("duration_seconds", stats.DurationSeconds).
		Msg("deduplication run completed")

	return stats, nil
}

func (e *Engine) processOne(ctx context.Context, raw db.RawArticle, seenURLs, seenFingerprints map[string]struct{}, stats *RunStats) {
	stats.Processed++

	fingerprint := Fingerprint(raw.Title, raw.Description)
	defer func() {
		seenURLs[raw.SourceURL] = struct{}{}
		seenFingerprints[fingerprint] = struct{}{}
	}()

	if _, ok := seenURLs[raw.SourceURL]; ok {
		stats.DuplicatesFound++
		return
	}
	if _, ok := seenFingerprints[fingerprint]; ok {
		stats.DuplicatesFound++
		return
	}

	match, err := e.findMatch(ctx, raw)
	if err != nil {
		e.logger.Error().Err(err).Str("source_url", raw.SourceURL).Msg("dedup record failed")
		stats.Errors++
		return
	}

	if match != nil {
		merged := Merge(*match, articleFromRaw(raw))
		if err := e.store.ReplaceArticle(ctx, match.ArticleID, &merged); err != nil {
			e.logger.Error().Err(err).Str("source_url", raw.SourceURL).Msg("dedup merge failed")
			stats.Errors++
			return
		}
		stats.Updated++
		stats.DuplicatesFound++
		return
	}

	article := articleFromRaw(raw)
	if (article.Lat == nil || article.Lng == nil) && e.locator != nil {
		if lat, lng, ok := e.locator.ResolveText(ctx, raw.Title+" "+raw.Description); ok {
			article.Lat = &lat
			article.Lng = &lng
		}
	}

	outcome, err := e.store.InsertArticle(ctx, &article)
	if err != nil {
		e.logger.Error().Err(err).Str("source_url", raw.SourceURL).Msg("dedup insert failed")
		stats.Errors++
		return
	}
	switch outcome {
	case db.Inserted:
		stats.UniqueAdded++
	case db.AlreadyExists:
		// A concurrent writer beat this record to the key.
		stats.DuplicatesFound++
	}
}

// findMatch returns the canonical article the record duplicates, or nil.
// An exact source_url hit is the match outright; otherwise the top
// text-ranked candidates are scored and the first one over threshold
// wins: title similarity >= 0.90, or title and description similarity
// both >= 0.70.
func (e *Engine) findMatch(ctx context.Context, raw db.RawArticle) (*db.Article, error) {
	existing, err := e.store.FindBySourceURL(ctx, raw.SourceURL)
	if err == nil {
		return existing, nil
	}
	if !db.IsNoRows(err) {
		return nil, fmt.Errorf("find article by source url: %w", err)
	}

	if strings.TrimSpace(raw.Title) == "" {
		return nil, nil
	}

	candidates, err := e.store.SearchTitleCandidates(ctx, raw.Title, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("search title candidates: %w", err)
	}

	for i := range candidates {
		candidate := &candidates[i]
		titleSim := Similarity(raw.Title, candidate.Title)
		if titleSim >= titleMatchThreshold {
			return candidate, nil
		}
		if titleSim >= pairMatchThreshold && Similarity(raw.Description, candidate.Description) >= pairMatchThreshold {
			return candidate, nil
		}
	}

	return nil, nil
}
