package db

import (
	"context"
	"fmt"
	"time"
)

// SourceCount stores per-source canonical counts.
type SourceCount struct {
	Source          string     `json:"source"`
	Articles        int64      `json:"articles"`
	LatestScrapedAt *time.Time `json:"latest_scraped_at,omitempty"`
}

// CategoryCount stores per-category canonical counts.
type CategoryCount struct {
	Category string `json:"category"`
	Articles int64  `json:"articles"`
}

// IngestTotals stores totals across the raw and canonical tables.
type IngestTotals struct {
	RawArticles int64 `json:"raw_articles"`
	Articles    int64 `json:"articles"`
	Geolocated  int64 `json:"geolocated"`
}

// IngestStats is the read model returned by the stats command.
type IngestStats struct {
	Totals            IngestTotals    `json:"totals"`
	Sources           []SourceCount   `json:"sources"`
	Categories        []CategoryCount `json:"categories"`
	OldestPublishedAt *time.Time      `json:"oldest_published_at,omitempty"`
	NewestPublishedAt *time.Time      `json:"newest_published_at,omitempty"`
}

// QueryIngestStats returns table totals plus per-source and per-category
// canonical counts.
func (p *Pool) QueryIngestStats(ctx context.Context) (*IngestStats, error) {
	stats := &IngestStats{
		Sources:    make([]SourceCount, 0, 16),
		Categories: make([]CategoryCount, 0, 16),
	}

	const totalsQuery = `
SELECT
	(SELECT COUNT(*) FROM news.raw_articles) AS raw_articles,
	(SELECT COUNT(*) FROM news.articles) AS articles,
	(SELECT COUNT(*) FROM news.articles a WHERE a.lat IS NOT NULL AND a.lng IS NOT NULL) AS geolocated,
	(SELECT MIN(a.published_at) FROM news.articles a) AS oldest_published_at,
	(SELECT MAX(a.published_at) FROM news.articles a) AS newest_published_at
`

	if err := p.QueryRow(ctx, totalsQuery).Scan(
		&stats.Totals.RawArticles,
		&stats.Totals.Articles,
		&stats.Totals.Geolocated,
		&stats.OldestPublishedAt,
		&stats.NewestPublishedAt,
	); err != nil {
		return nil, fmt.Errorf("query stats totals: %w", err)
	}

	const sourcesQuery = `
SELECT
	a.source,
	COUNT(*)::BIGINT AS articles,
	MAX(a.scraped_at) AS latest_scraped_at
FROM news.articles a
GROUP BY a.source
ORDER BY articles DESC, a.source
`

	rows, err := p.Query(ctx, sourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("query stats source counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row SourceCount
		if err := rows.Scan(&row.Source, &row.Articles, &row.LatestScrapedAt); err != nil {
			return nil, fmt.Errorf("scan stats source row: %w", err)
		}
		stats.Sources = append(stats.Sources, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats source rows: %w", err)
	}

	const categoriesQuery = `
SELECT
	a.category,
	COUNT(*)::BIGINT AS articles
FROM news.articles a
WHERE a.category IS NOT NULL AND a.category <> ''
GROUP BY a.category
ORDER BY articles DESC, a.category
`

	catRows, err := p.Query(ctx, categoriesQuery)
	if err != nil {
		return nil, fmt.Errorf("query stats category counts: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var row CategoryCount
		if err := catRows.Scan(&row.Category, &row.Articles); err != nil {
			return nil, fmt.Errorf("scan stats category row: %w", err)
		}
		stats.Categories = append(stats.Categories, row)
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats category rows: %w", err)
	}

	return stats, nil
}
