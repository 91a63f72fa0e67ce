package db

import (
	"context"
	"fmt"
)

// InsertRawBatch appends one source's scrape observations in a single
// transaction and returns the number of rows written. The raw table has
// no uniqueness constraint; every observation is kept.
func (p *Pool) InsertRawBatch(ctx context.Context, records []RawArticle) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin raw insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
INSERT INTO news.raw_articles
	(source, source_url, title, description, published_at, scraped_at, category, image_url, tags, lat, lng, language)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
`

	inserted := 0
	for _, record := range records {
		tags := record.Tags
		if len(tags) == 0 {
			tags = []byte(`[]`)
		}
		tag, err := tx.Exec(ctx, q,
			record.Source,
			record.SourceURL,
			record.Title,
			record.Description,
			record.PublishedAt,
			record.ScrapedAt.UTC(),
			record.Category,
			record.ImageURL,
			string(tags),
			record.Lat,
			record.Lng,
			record.Language,
		)
		if err != nil {
			return 0, fmt.Errorf("insert raw article %q: %w", record.SourceURL, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit raw insert tx: %w", err)
	}
	return inserted, nil
}

// FetchRawBatch returns up to limit raw rows with raw_id > afterID in
// raw_id order. The dedup engine pages the whole table with this.
func (p *Pool) FetchRawBatch(ctx context.Context, afterID int64, limit int) ([]RawArticle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	r.raw_id,
	r.source,
	r.source_url,
	r.title,
	r.description,
	r.published_at,
	r.scraped_at,
	r.category,
	r.image_url,
	r.tags,
	r.lat,
	r.lng,
	r.language,
	r.created_at
FROM news.raw_articles r
WHERE r.raw_id > $1
ORDER BY r.raw_id
LIMIT $2
`

	rows, err := p.Query(ctx, q, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query raw batch: %w", err)
	}
	defer rows.Close()

	items := make([]RawArticle, 0, limit)
	for rows.Next() {
		var row RawArticle
		if err := rows.Scan(
			&row.RawID,
			&row.Source,
			&row.SourceURL,
			&row.Title,
			&row.Description,
			&row.PublishedAt,
			&row.ScrapedAt,
			&row.Category,
			&row.ImageURL,
			&row.Tags,
			&row.Lat,
			&row.Lng,
			&row.Language,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan raw row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw rows: %w", err)
	}

	return items, nil
}

// CountRaw returns the total number of raw observations.
func (p *Pool) CountRaw(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*)::BIGINT FROM news.raw_articles`

	var count int64
	if err := p.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count raw articles: %w", err)
	}
	return count, nil
}
