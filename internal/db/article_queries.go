package db

import (
	"context"
	"fmt"
	"time"
)

const articleColumns = `
	a.article_id,
	a.source,
	a.source_url,
	a.title,
	a.description,
	a.published_at,
	a.scraped_at,
	a.category,
	a.image_url,
	a.tags,
	a.lat,
	a.lng,
	a.language,
	a.created_at,
	a.updated_at`

func scanArticle(scan func(dest ...any) error) (*Article, error) {
	var row Article
	if err := scan(
		&row.ArticleID,
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
		&row.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindBySourceURL returns the canonical article holding the exact source
// URL, or ErrNoRows when none exists.
func (p *Pool) FindBySourceURL(ctx context.Context, sourceURL string) (*Article, error) {
	const q = `
SELECT` + articleColumns + `
FROM news.articles a
WHERE a.source_url = $1
`

	article, err := scanArticle(p.QueryRow(ctx, q, sourceURL).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query article by source url: %w", err)
	}
	return article, nil
}

// SearchTitleCandidates returns up to limit canonical articles ranked by
// text relevance against the given title. An empty or token-free title
// yields no candidates.
func (p *Pool) SearchTitleCandidates(ctx context.Context, title string, limit int) ([]Article, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	query := buildOrTsQuery(title)
	if query == "" {
		return nil, nil
	}

	const q = `
SELECT` + articleColumns + `
FROM news.articles a, to_tsquery('simple', $1) query
WHERE a.fts @@ query
ORDER BY ts_rank(a.fts, query) DESC, a.article_id
LIMIT $2
`

	rows, err := p.Query(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query title candidates: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		items = append(items, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	return items, nil
}

// InsertArticle writes a canonical article keyed by source_url. A row
// already holding the key leaves the table untouched and reports
// AlreadyExists; otherwise the new article_id is set on the argument.
func (p *Pool) InsertArticle(ctx context.Context, article *Article) (InsertOutcome, error) {
	const q = `
INSERT INTO news.articles
	(source, source_url, title, description, published_at, scraped_at, category, image_url, tags, lat, lng, language)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
ON CONFLICT (source_url) DO NOTHING
RETURNING article_id
`

	tags := article.Tags
	if len(tags) == 0 {
		tags = []byte(`[]`)
	}

	var id int64
	err := p.QueryRow(ctx, q,
		article.Source,
		article.SourceURL,
		article.Title,
		article.Description,
		article.PublishedAt,
		article.ScrapedAt.UTC(),
		article.Category,
		article.ImageURL,
		string(tags),
		article.Lat,
		article.Lng,
		article.Language,
	).Scan(&id)
	if err != nil {
		if IsNoRows(err) {
			return AlreadyExists, nil
		}
		return AlreadyExists, fmt.Errorf("insert article %q: %w", article.SourceURL, err)
	}

	article.ArticleID = id
	return Inserted, nil
}

// ReplaceArticle overwrites every mutable column of the identified row.
func (p *Pool) ReplaceArticle(ctx context.Context, articleID int64, article *Article) error {
	const q = `
UPDATE news.articles
SET source = $1,
	source_url = $2,
	title = $3,
	description = $4,
	published_at = $5,
	scraped_at = $6,
	category = $7,
	image_url = $8,
	tags = $9::jsonb,
	lat = $10,
	lng = $11,
	language = $12,
	updated_at = now()
WHERE article_id = $13
`

	tags := article.Tags
	if len(tags) == 0 {
		tags = []byte(`[]`)
	}

	tag, err := p.Exec(ctx, q,
		article.Source,
		article.SourceURL,
		article.Title,
		article.Description,
		article.PublishedAt,
		article.ScrapedAt.UTC(),
		article.Category,
		article.ImageURL,
		string(tags),
		article.Lat,
		article.Lng,
		article.Language,
		articleID,
	)
	if err != nil {
		return fmt.Errorf("replace article %d: %w", articleID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// DeleteArticle removes one canonical row by id.
func (p *Pool) DeleteArticle(ctx context.Context, articleID int64) error {
	const q = `DELETE FROM news.articles WHERE article_id = $1`

	tag, err := p.Exec(ctx, q, articleID)
	if err != nil {
		return fmt.Errorf("delete article %d: %w", articleID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// DuplicateSourceURLs lists source URLs held by more than one canonical
// row. Compaction uses this to find groups left behind by historical
// ingests that predate the unique key.
func (p *Pool) DuplicateSourceURLs(ctx context.Context) ([]string, error) {
	const q = `
SELECT a.source_url
FROM news.articles a
GROUP BY a.source_url
HAVING COUNT(*) > 1
ORDER BY a.source_url
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query duplicate source urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0, 16)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan duplicate url row: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate url rows: %w", err)
	}

	return urls, nil
}

// ArticlesBySourceURL returns every canonical row holding the key,
// newest scrape first with article_id as the tie-breaker.
func (p *Pool) ArticlesBySourceURL(ctx context.Context, sourceURL string) ([]Article, error) {
	const q = `
SELECT` + articleColumns + `
FROM news.articles a
WHERE a.source_url = $1
ORDER BY a.scraped_at DESC, a.article_id DESC
`

	rows, err := p.Query(ctx, q, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("query articles by source url: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0, 4)
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		items = append(items, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return items, nil
}

// ArticleSearchOptions controls canonical article listing queries.
type ArticleSearchOptions struct {
	Source   string
	Category string
	Search   string
	From     *time.Time
	To       *time.Time
	LatMin   *float64
	LatMax   *float64
	LngMin   *float64
	LngMax   *float64
	Limit    int
	Offset   int
}

// SearchArticles lists canonical articles newest first with optional
// source, category, date-window, bounding-box and free-text filters.
func (p *Pool) SearchArticles(ctx context.Context, opts ArticleSearchOptions) ([]Article, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT` + articleColumns + `
FROM news.articles a
WHERE ($1 = '' OR a.source = $1)
  AND ($2 = '' OR a.category = $2)
  AND ($3::timestamptz IS NULL OR a.published_at >= $3)
  AND ($4::timestamptz IS NULL OR a.published_at <= $4)
  AND ($5::float8 IS NULL OR a.lat >= $5)
  AND ($6::float8 IS NULL OR a.lat <= $6)
  AND ($7::float8 IS NULL OR a.lng >= $7)
  AND ($8::float8 IS NULL OR a.lng <= $8)
  AND ($9 = '' OR a.fts @@ to_tsquery('simple', $9))
ORDER BY a.published_at DESC NULLS LAST, a.article_id DESC
LIMIT $10 OFFSET $11
`

	rows, err := p.Query(ctx, q,
		opts.Source,
		opts.Category,
		opts.From,
		opts.To,
		opts.LatMin,
		opts.LatMax,
		opts.LngMin,
		opts.LngMax,
		buildOrTsQuery(opts.Search),
		opts.Limit,
		opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0, opts.Limit)
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		items = append(items, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return items, nil
}

// GeolocatedArticles returns canonical articles that carry coordinates,
// newest first, optionally constrained to a bounding box.
func (p *Pool) GeolocatedArticles(ctx context.Context, opts ArticleSearchOptions) ([]Article, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT` + articleColumns + `
FROM news.articles a
WHERE a.lat IS NOT NULL
  AND a.lng IS NOT NULL
  AND ($1 = '' OR a.source = $1)
  AND ($2 = '' OR a.category = $2)
  AND ($3::float8 IS NULL OR a.lat >= $3)
  AND ($4::float8 IS NULL OR a.lat <= $4)
  AND ($5::float8 IS NULL OR a.lng >= $5)
  AND ($6::float8 IS NULL OR a.lng <= $6)
ORDER BY a.published_at DESC NULLS LAST, a.article_id DESC
LIMIT $7
`

	rows, err := p.Query(ctx, q,
		opts.Source,
		opts.Category,
		opts.LatMin,
		opts.LatMax,
		opts.LngMin,
		opts.LngMax,
		opts.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query geolocated articles: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0, opts.Limit)
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		items = append(items, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return items, nil
}

// ArticlesWithinRadius returns canonical articles whose coordinates lie
// within radiusKM of the center, nearest first.
func (p *Pool) ArticlesWithinRadius(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]Article, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	// Haversine over a sphere of radius 6371 km.
	const q = `
SELECT` + articleColumns + `
FROM news.articles a
WHERE a.lat IS NOT NULL
  AND a.lng IS NOT NULL
  AND 6371 * 2 * asin(sqrt(
		power(sin(radians(a.lat - $1) / 2), 2) +
		cos(radians($1)) * cos(radians(a.lat)) *
		power(sin(radians(a.lng - $2) / 2), 2)
	)) <= $3
ORDER BY 6371 * 2 * asin(sqrt(
		power(sin(radians(a.lat - $1) / 2), 2) +
		cos(radians($1)) * cos(radians(a.lat)) *
		power(sin(radians(a.lng - $2) / 2), 2)
	))
LIMIT $4
`

	rows, err := p.Query(ctx, q, lat, lng, radiusKM, limit)
	if err != nil {
		return nil, fmt.Errorf("query articles within radius: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		items = append(items, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return items, nil
}

// RecentArticles returns the newest canonical articles by published date.
func (p *Pool) RecentArticles(ctx context.Context, limit int) ([]Article, error) {
	return p.SearchArticles(ctx, ArticleSearchOptions{Limit: limit})
}

// ListCategories returns the distinct non-empty categories in use.
func (p *Pool) ListCategories(ctx context.Context) ([]string, error) {
	const q = `
SELECT DISTINCT a.category
FROM news.articles a
WHERE a.category IS NOT NULL AND a.category <> ''
ORDER BY a.category
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0, 16)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}
