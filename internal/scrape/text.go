package scrape

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// cleanText collapses whitespace runs to single spaces and drops
// control characters. Scraped fields are stored single-line.
func cleanText(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, raw)
	return strings.Join(strings.Fields(stripped), " ")
}

// stripHTML extracts the text content of an HTML fragment. Feed
// summaries frequently arrive as markup.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// truncateText clips text to maxRunes runes, appending an ellipsis when
// it was cut.
func truncateText(raw string, maxRunes int) string {
	trimmed := strings.TrimSpace(raw)
	if maxRunes <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= maxRunes {
		return trimmed
	}
	clipped := strings.TrimSpace(string(runes[:maxRunes-1]))
	if clipped == "" {
		return "…"
	}
	return clipped + "…"
}
