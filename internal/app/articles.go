package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"khobor.news/khobor/internal/cli"
	"khobor.news/khobor/internal/db"
)

// articleRow is the JSON read model of the articles command.
type articleRow struct {
	ArticleID   int64      `json:"article_id"`
	Source      string     `json:"source"`
	SourceURL   string     `json:"source_url"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
	Category    *string    `json:"category,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	Tags        []string   `json:"tags"`
	Lat         *float64   `json:"lat,omitempty"`
	Lng         *float64   `json:"lng,omitempty"`
	Language    *string    `json:"language,omitempty"`
}

func runArticles(args []string) int {
	fs := flag.NewFlagSet("articles", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	source := fs.String("source", "", "Filter by source name")
	category := fs.String("category", "", "Filter by category")
	search := fs.String("q", "", "Free-text search over title and description")
	from := fs.String("from", "", "Published on or after this day (YYYY-MM-DD, UTC)")
	to := fs.String("to", "", "Published on or before this day (YYYY-MM-DD, UTC)")
	limit := fs.Int("limit", 50, "Maximum articles to return")
	offset := fs.Int("offset", 0, "Rows to skip before the first result")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "articles does not accept positional arguments")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}
	if *offset < 0 {
		fmt.Fprintln(os.Stderr, "--offset must be >= 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	fromBound, err := parseOptionalUTCDay(*from, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --from: %v\n", err)
		return 2
	}
	toBound, err := parseOptionalUTCDay(*to, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --to: %v\n", err)
		return 2
	}
	if fromBound != nil && toBound != nil && toBound.Before(*fromBound) {
		fmt.Fprintln(os.Stderr, "--from must be <= --to")
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	articles, err := pool.SearchArticles(ctx, db.ArticleSearchOptions{
		Source:   strings.TrimSpace(*source),
		Category: strings.ToLower(strings.TrimSpace(*category)),
		Search:   strings.TrimSpace(*search),
		From:     fromBound,
		To:       toBound,
		Limit:    *limit,
		Offset:   *offset,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query articles: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		rows := make([]articleRow, 0, len(articles))
		for _, article := range articles {
			rows = append(rows, buildArticleRow(article))
		}
		if err := printJSON(rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	tableRows := make([][]string, 0, len(articles))
	for _, article := range articles {
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", article.ArticleID),
			truncateForTable(article.Title, 80),
			article.Source,
			pointerStringOrEmpty(article.Category),
			formatUTCTimestampPtr(article.PublishedAt),
			formatCoords(article.Lat, article.Lng),
		})
	}

	if err := writeTable(
		[]string{"article_id", "title", "source", "category", "published_at", "coords"},
		tableRows,
	); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}

func buildArticleRow(article db.Article) articleRow {
	tags := db.TagList(article.Tags)
	if tags == nil {
		tags = []string{}
	}
	return articleRow{
		ArticleID:   article.ArticleID,
		Source:      article.Source,
		SourceURL:   article.SourceURL,
		Title:       article.Title,
		Description: article.Description,
		PublishedAt: article.PublishedAt,
		ScrapedAt:   article.ScrapedAt,
		Category:    article.Category,
		ImageURL:    article.ImageURL,
		Tags:        tags,
		Lat:         article.Lat,
		Lng:         article.Lng,
		Language:    article.Language,
	}
}

func formatCoords(lat, lng *float64) string {
	if lat == nil || lng == nil {
		return ""
	}
	return fmt.Sprintf("%.4f,%.4f", *lat, *lng)
}
