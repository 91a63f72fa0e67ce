package dedup

import (
	"reflect"
	"testing"
	"time"

	"khobor.news/khobor/internal/db"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func dayUTC(day int) time.Time {
	return time.Date(2025, time.March, day, 12, 0, 0, 0, time.UTC)
}

func TestMergeKeepsNewerScrapeAndOlderPublish(t *testing.T) {
	t.Parallel()

	earlier := dayUTC(1)
	later := dayUTC(5)

	existing := db.Article{ScrapedAt: dayUTC(2), PublishedAt: &later}
	incoming := db.Article{ScrapedAt: dayUTC(3), PublishedAt: &earlier}

	merged := Merge(existing, incoming)
	if !merged.ScrapedAt.Equal(dayUTC(3)) {
		t.Fatalf("unexpected scraped_at: %v", merged.ScrapedAt)
	}
	if merged.PublishedAt == nil || !merged.PublishedAt.Equal(earlier) {
		t.Fatalf("unexpected published_at: %v", merged.PublishedAt)
	}

	reversed := Merge(incoming, existing)
	if !reversed.ScrapedAt.Equal(dayUTC(3)) {
		t.Fatalf("older incoming scrape overwrote newer: %v", reversed.ScrapedAt)
	}
	if reversed.PublishedAt == nil || !reversed.PublishedAt.Equal(earlier) {
		t.Fatalf("later publish date replaced earlier: %v", reversed.PublishedAt)
	}
}

func TestMergeFillsMissingPublishDate(t *testing.T) {
	t.Parallel()

	published := dayUTC(4)

	merged := Merge(db.Article{ScrapedAt: dayUTC(1)}, db.Article{ScrapedAt: dayUTC(1), PublishedAt: &published})
	if merged.PublishedAt == nil || !merged.PublishedAt.Equal(published) {
		t.Fatalf("incoming publish date not adopted: %v", merged.PublishedAt)
	}

	kept := Merge(db.Article{ScrapedAt: dayUTC(1), PublishedAt: &published}, db.Article{ScrapedAt: dayUTC(1)})
	if kept.PublishedAt == nil || !kept.PublishedAt.Equal(published) {
		t.Fatalf("existing publish date lost: %v", kept.PublishedAt)
	}
}

func TestMergeLongerDescriptionWins(t *testing.T) {
	t.Parallel()

	existing := db.Article{ScrapedAt: dayUTC(1), Description: "short text"}
	incoming := db.Article{ScrapedAt: dayUTC(1), Description: "a noticeably longer description body"}

	if got := Merge(existing, incoming).Description; got != incoming.Description {
		t.Fatalf("longer incoming description not adopted: %q", got)
	}
	if got := Merge(incoming, existing).Description; got != incoming.Description {
		t.Fatalf("shorter incoming description overwrote longer: %q", got)
	}

	tieA := db.Article{ScrapedAt: dayUTC(1), Description: "same size A"}
	tieB := db.Article{ScrapedAt: dayUTC(1), Description: "same size B"}
	if got := Merge(tieA, tieB).Description; got != tieA.Description {
		t.Fatalf("tie did not keep existing description: %q", got)
	}
}

func TestMergeNeverDropsImage(t *testing.T) {
	t.Parallel()

	withImage := db.Article{ScrapedAt: dayUTC(1), ImageURL: strPtr("https://example.com/a.jpg")}
	withoutImage := db.Article{ScrapedAt: dayUTC(1)}

	if got := Merge(withImage, withoutImage).ImageURL; got == nil || *got != "https://example.com/a.jpg" {
		t.Fatalf("existing image lost: %v", got)
	}

	other := db.Article{ScrapedAt: dayUTC(1), ImageURL: strPtr("https://example.com/b.jpg")}
	if got := Merge(withImage, other).ImageURL; got == nil || *got != "https://example.com/a.jpg" {
		t.Fatalf("existing image overwritten: %v", got)
	}

	if got := Merge(withoutImage, withImage).ImageURL; got == nil || *got != "https://example.com/a.jpg" {
		t.Fatalf("missing image not filled: %v", got)
	}

	blank := db.Article{ScrapedAt: dayUTC(1), ImageURL: strPtr("")}
	if got := Merge(blank, withImage).ImageURL; got == nil || *got != "https://example.com/a.jpg" {
		t.Fatalf("blank image not treated as missing: %v", got)
	}
}

func TestMergeCoordinatePairIsAtomic(t *testing.T) {
	t.Parallel()

	complete := db.Article{ScrapedAt: dayUTC(1), Lat: floatPtr(23.81), Lng: floatPtr(90.41)}
	missing := db.Article{ScrapedAt: dayUTC(1)}
	partial := db.Article{ScrapedAt: dayUTC(1), Lat: floatPtr(22.35)}
	other := db.Article{ScrapedAt: dayUTC(1), Lat: floatPtr(24.37), Lng: floatPtr(88.60)}

	merged := Merge(missing, complete)
	if merged.Lat == nil || merged.Lng == nil || *merged.Lat != 23.81 || *merged.Lng != 90.41 {
		t.Fatalf("incoming pair not adopted: %v %v", merged.Lat, merged.Lng)
	}

	kept := Merge(complete, other)
	if *kept.Lat != 23.81 || *kept.Lng != 90.41 {
		t.Fatalf("complete existing pair overwritten: %v %v", *kept.Lat, *kept.Lng)
	}

	repaired := Merge(partial, complete)
	if repaired.Lat == nil || repaired.Lng == nil || *repaired.Lat != 23.81 || *repaired.Lng != 90.41 {
		t.Fatalf("partial existing pair not repaired: %v %v", repaired.Lat, repaired.Lng)
	}

	ignored := Merge(missing, partial)
	if ignored.Lat != nil || ignored.Lng != nil {
		t.Fatalf("incomplete incoming pair adopted: %v %v", ignored.Lat, ignored.Lng)
	}
}

func TestMergeUnionsTags(t *testing.T) {
	t.Parallel()

	existing := db.Article{ScrapedAt: dayUTC(1), Tags: db.TagsJSON([]string{"flood", "dhaka"})}
	incoming := db.Article{ScrapedAt: dayUTC(1), Tags: db.TagsJSON([]string{"dhaka", "weather"})}

	merged := Merge(existing, incoming)
	got := db.TagList(merged.Tags)
	want := []string{"flood", "dhaka", "weather"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tag union: %v (want %v)", got, want)
	}
}

func TestMergeFillsCategoryAndLanguage(t *testing.T) {
	t.Parallel()

	existing := db.Article{ScrapedAt: dayUTC(1)}
	incoming := db.Article{ScrapedAt: dayUTC(1), Category: strPtr("national"), Language: strPtr("bn")}

	merged := Merge(existing, incoming)
	if merged.Category == nil || *merged.Category != "national" {
		t.Fatalf("category not filled: %v", merged.Category)
	}
	if merged.Language == nil || *merged.Language != "bn" {
		t.Fatalf("language not filled: %v", merged.Language)
	}

	kept := Merge(db.Article{ScrapedAt: dayUTC(1), Category: strPtr("sports")}, incoming)
	if *kept.Category != "sports" {
		t.Fatalf("existing category overwritten: %q", *kept.Category)
	}
}

func TestMergeKeepsIdentityFields(t *testing.T) {
	t.Parallel()

	existing := db.Article{
		ArticleID: 7,
		Source:    "prothomalo",
		SourceURL: "https://prothomalo.com/a",
		Title:     "existing title",
		ScrapedAt: dayUTC(1),
	}
	incoming := db.Article{
		Source:    "kalerkantho",
		SourceURL: "https://kalerkantho.com/b",
		Title:     "incoming title",
		ScrapedAt: dayUTC(2),
	}

	merged := Merge(existing, incoming)
	if merged.ArticleID != 7 || merged.Source != "prothomalo" || merged.SourceURL != existing.SourceURL || merged.Title != existing.Title {
		t.Fatalf("identity fields changed: %+v", merged)
	}
}
