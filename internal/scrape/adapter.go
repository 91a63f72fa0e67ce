// Package scrape turns configured news sources into raw article rows:
// feed parsing to candidates, bounded-concurrency page enrichment, and
// a fan-out orchestrator that isolates per-source failures.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"khobor.news/khobor/internal/clock"
	"khobor.news/khobor/internal/db"
	"khobor.news/khobor/internal/langdetect"
	"khobor.news/khobor/internal/sources"
)

const (
	// DefaultDetailConcurrency bounds simultaneous article-page fetches
	// within one source.
	DefaultDetailConcurrency = 5

	descriptionParagraphLimit = 5
	minParagraphRunes         = 20
	descriptionMaxRunes       = 4000
	maxFeedTags               = 10
)

// urlCategories are the path segments recognized as article categories.
var urlCategories = map[string]struct{}{
	"national": {}, "international": {}, "sports": {}, "entertainment": {},
	"business": {}, "technology": {}, "politics": {}, "world": {},
	"bangladesh": {}, "economy": {}, "opinion": {}, "lifestyle": {}, "health": {},
}

// Fetcher retrieves one URL subject to a timeout and a body size cap.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Adapter scrapes one configured source.
type Adapter struct {
	source      sources.Source
	fetcher     Fetcher
	logger      zerolog.Logger
	concurrency int
}

// AdapterOptions tunes one adapter.
type AdapterOptions struct {
	// DetailConcurrency bounds simultaneous article-page fetches. Zero
	// selects DefaultDetailConcurrency.
	DetailConcurrency int
}

// NewAdapter builds an adapter for one source.
func NewAdapter(source sources.Source, fetcher Fetcher, logger zerolog.Logger, opts AdapterOptions) *Adapter {
	concurrency := opts.DetailConcurrency
	if concurrency <= 0 {
		concurrency = DefaultDetailConcurrency
	}
	return &Adapter{
		source:      source,
		fetcher:     fetcher,
		logger:      logger.With().Str("source", source.Key).Logger(),
		concurrency: concurrency,
	}
}

// Scrape produces the source's raw articles: all feeds are resolved to
// candidates, deduplicated by link, optionally limited, then enriched
// from the article pages under the concurrency gate. Articles still
// lacking a title or URL after enrichment are dropped, not errors.
func (a *Adapter) Scrape(ctx context.Context, limit int) ([]db.RawArticle, error) {
	candidates, err := a.feedCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	enriched := make([]db.RawArticle, len(candidates))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			enriched[i] = a.enrich(ctx, candidates[i])
		}(i)
	}
	wg.Wait()

	valid := make([]db.RawArticle, 0, len(enriched))
	for _, article := range enriched {
		if article.Title == "" || article.SourceURL == "" {
			continue
		}
		valid = append(valid, article)
	}

	a.logger.Info().
		Int("candidates", len(candidates)).
		Int("articles", len(valid)).
		Msg("source scraped")
	return valid, nil
}

// feedCandidates parses every configured feed into candidate articles,
// keeping the first observation of each link. A feed that cannot be
// fetched or parsed fails the whole source.
func (a *Adapter) feedCandidates(ctx context.Context) ([]db.RawArticle, error) {
	var candidates []db.RawArticle
	seen := make(map[string]struct{})
	parser := gofeed.NewParser()

	for _, feedURL := range a.source.Feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := a.fetcher.Get(ctx, feedURL)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feedURL, err)
		}
		feed, err := parser.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
		}
		for _, item := range feed.Items {
			link := strings.TrimSpace(item.Link)
			if link == "" {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			candidates = append(candidates, a.candidateFromItem(item, link))
		}
	}
	return candidates, nil
}

func (a *Adapter) candidateFromItem(item *gofeed.Item, link string) db.RawArticle {
	article := db.RawArticle{
		Source:      a.source.Name,
		SourceURL:   link,
		Title:       cleanText(item.Title),
		Description: cleanText(stripHTML(item.Description)),
		Category:    categoryFromURL(link),
		Tags:        db.TagsJSON(feedTags(item.Categories)),
	}
	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		article.PublishedAt = &published
	}
	return article
}

// enrich fetches the article page and fills the fields the feed did not
// provide. Any page-level failure degrades to the feed-sourced fields.
func (a *Adapter) enrich(ctx context.Context, article db.RawArticle) db.RawArticle {
	body, err := a.fetcher.Get(ctx, article.SourceURL)
	if err != nil {
		a.logger.Warn().Err(err).Str("url", article.SourceURL).Msg("article fetch failed")
		return a.finalize(article)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		a.logger.Warn().Err(err).Str("url", article.SourceURL).Msg("article parse failed")
		return a.finalize(article)
	}

	if article.Title == "" {
		article.Title = firstText(doc, selectorOrDefault(a.source.Selectors.Title, "h1"))
	}

	if description := a.extractDescription(doc, body, article.SourceURL); description != "" {
		article.Description = description
	}

	if article.ImageURL == nil {
		if src := firstImageSrc(doc, selectorOrDefault(a.source.Selectors.Image, "img")); src != "" {
			if resolved := resolveURL(article.SourceURL, src); resolved != "" {
				article.ImageURL = &resolved
			}
		}
	}

	if article.PublishedAt == nil {
		if dateText := firstText(doc, selectorOrDefault(a.source.Selectors.Date, ".date")); dateText != "" {
			if parsed, err := dateparse.ParseAny(dateText); err == nil {
				published := parsed.UTC()
				article.PublishedAt = &published
			}
		}
	}

	return a.finalize(article)
}

// extractDescription pulls article body text: the source's description
// selector first, any paragraph second, readability extraction last.
// An empty return keeps the feed summary.
func (a *Adapter) extractDescription(doc *goquery.Document, body []byte, pageURL string) string {
	if text := paragraphText(doc, a.source.Selectors.Description); text != "" {
		return text
	}
	if text := paragraphText(doc, "p"); text != "" {
		return text
	}
	return readableText(body, pageURL)
}

// finalize stamps the observation time and detects the language; both
// the enriched and the degraded paths come through here.
func (a *Adapter) finalize(article db.RawArticle) db.RawArticle {
	article.Title = cleanText(article.Title)
	article.Description = cleanText(article.Description)
	article.ScrapedAt = clock.UTC()
	if lang := langdetect.DetectISO6391(article.Title + " " + article.Description); lang != "" {
		article.Language = &lang
	}
	if len(article.Tags) == 0 {
		article.Tags = db.TagsJSON(nil)
	}
	return article
}

// paragraphText joins the qualifying texts among the selector's first
// five matches; fragments of 20 runes or fewer are skipped as captions
// and bylines.
func paragraphText(doc *goquery.Document, selector string) string {
	if strings.TrimSpace(selector) == "" {
		return ""
	}
	var parts []string
	doc.Find(selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= descriptionParagraphLimit {
			return false
		}
		text := cleanText(sel.Text())
		if utf8.RuneCountInString(text) > minParagraphRunes {
			parts = append(parts, text)
		}
		return true
	})
	return strings.Join(parts, " ")
}

// readableText is the last-resort description: readability extraction
// over the whole page, clipped.
func readableText(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}
	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return ""
	}
	text := cleanText(rendered.String())
	if text == "" {
		text = cleanText(article.Excerpt())
	}
	return truncateText(text, descriptionMaxRunes)
}

// firstText returns the first non-empty text among the selector's
// matches.
func firstText(doc *goquery.Document, selector string) string {
	var text string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text = cleanText(sel.Text())
		return text == ""
	})
	return text
}

// firstImageSrc returns the first src or data-src among the selector's
// matches.
func firstImageSrc(doc *goquery.Document, selector string) string {
	var src string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src = strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(sel.AttrOr("data-src", ""))
		}
		return src == ""
	})
	return src
}

func selectorOrDefault(selector, fallback string) string {
	if strings.TrimSpace(selector) == "" {
		return fallback
	}
	return selector
}

// resolveURL makes a possibly relative reference absolute against the
// page URL.
func resolveURL(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func categoryFromURL(link string) *string {
	u, err := url.Parse(link)
	if err != nil {
		return nil
	}
	for _, part := range strings.Split(u.Path, "/") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if _, ok := urlCategories[part]; ok {
			return &part
		}
	}
	return nil
}

func feedTags(categories []string) []string {
	var tags []string
	seen := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		tag := strings.ToLower(cleanText(category))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == maxFeedTags {
			break
		}
	}
	return tags
}
