package dedup

import (
	"context"
	"fmt"
	"time"

	"khobor.news/khobor/internal/clock"
)

// CompactionStats is the read model of one compaction pass.
type CompactionStats struct {
	Checked           int       `json:"checked"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	Errors            int       `json:"errors"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

func (s *CompactionStats) finish() {
	s.FinishedAt = clock.UTC()
	s.DurationSeconds = s.FinishedAt.Sub(s.StartedAt).Seconds()
}

// Compact removes residual same-URL duplicate groups left behind by
// concurrent writers or historical ingests: the newest member of each
// group absorbs the others through the merge policy and the rest are
// deleted. Idempotent; a second pass finds nothing to fold.
func (e *Engine) Compact(ctx context.Context) (*CompactionStats, error) {
	stats := &CompactionStats{StartedAt: clock.UTC()}
	if e == nil || e.store == nil {
		stats.finish()
		return stats, fmt.Errorf("dedup engine is not initialized")
	}

	e.logger.Info().Msg("starting duplicate compaction")

	urls, err := e.store.DuplicateSourceURLs(ctx)
	if err != nil {
		stats.finish()
		return stats, fmt.Errorf("list duplicate source urls: %w", err)
	}

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			stats.finish()
			return stats, err
		}
		if err := e.compactGroup(ctx, url, stats); err != nil {
			e.logger.Error().Err(err).Str("source_url", url).Msg("compaction group failed")
			stats.Errors++
		}
	}

	stats.finish()
	e.logger.Info().
		Int("checked", stats.Checked).
		Int("duplicates_removed", stats.DuplicatesRemoved).
		Int("errors", stats.Errors).
		Float64("duration_seconds", stats.DurationSeconds).
		Msg("duplicate compaction completed")

	return stats, nil
}

func (e *Engine) compactGroup(ctx context.Context, sourceURL string, stats *CompactionStats) error {
	group, err := e.store.ArticlesBySourceURL(ctx, sourceURL)
	if err != nil {
		return fmt.Errorf("load duplicate group: %w", err)
	}

	stats.Checked += len(group)
	if len(group) < 2 {
		return nil
	}

	// The group arrives newest scrape first; the head absorbs the rest.
	keeper := group[0]
	for _, extra := range group[1:] {
		keeper = Merge(keeper, extra)
	}

	if err := e.store.ReplaceArticle(ctx, keeper.ArticleID, &keeper); err != nil {
		return fmt.Errorf("persist folded article: %w", err)
	}

	for _, extra := range group[1:] {
		if err := e.store.DeleteArticle(ctx, extra.ArticleID); err != nil {
			return fmt.Errorf("delete duplicate article %d: %w", extra.ArticleID, err)
		}
		stats.DuplicatesRemoved++
	}

	return nil
}
