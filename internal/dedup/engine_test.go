package dedup

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"khobor.news/khobor/internal/db"
)

type memoryRawSource struct {
	rows       []db.RawArticle
	calls      int
	failOnCall int
}

func (m *memoryRawSource) FetchRawBatch(_ context.Context, afterID int64, limit int) ([]db.RawArticle, error) {
	m.calls++
	if m.failOnCall > 0 && m.calls >= m.failOnCall {
		return nil, fmt.Errorf("raw store unreachable")
	}
	out := make([]db.RawArticle, 0, limit)
	for _, row := range m.rows {
		if row.RawID > afterID {
			out = append(out, row)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memoryStore struct {
	nextID       int64
	articles     []db.Article
	findErrURL   string
	searchErr    error
	listDupErr   error
	conflictURLs map[string]struct{}
}

func (m *memoryStore) seed(article db.Article) db.Article {
	m.nextID++
	article.ArticleID = m.nextID
	m.articles = append(m.articles, article)
	return article
}

func (m *memoryStore) FindBySourceURL(_ context.Context, sourceURL string) (*db.Article, error) {
	if m.findErrURL != "" && sourceURL == m.findErrURL {
		return nil, fmt.Errorf("store query failed")
	}
	for i := range m.articles {
		if m.articles[i].SourceURL == sourceURL {
			found := m.articles[i]
			return &found, nil
		}
	}
	return nil, db.ErrNoRows
}

func (m *memoryStore) SearchTitleCandidates(_ context.Context, _ string, limit int) ([]db.Article, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	out := append([]db.Article(nil), m.articles...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) InsertArticle(_ context.Context, article *db.Article) (db.InsertOutcome, error) {
	if _, ok := m.conflictURLs[article.SourceURL]; ok {
		return db.AlreadyExists, nil
	}
	for i := range m.articles {
		if m.articles[i].SourceURL == article.SourceURL {
			return db.AlreadyExists, nil
		}
	}
	m.nextID++
	article.ArticleID = m.nextID
	m.articles = append(m.articles, *article)
	return db.Inserted, nil
}

func (m *memoryStore) ReplaceArticle(_ context.Context, articleID int64, article *db.Article) error {
	for i := range m.articles {
		if m.articles[i].ArticleID == articleID {
			replaced := *article
			replaced.ArticleID = articleID
			m.articles[i] = replaced
			return nil
		}
	}
	return db.ErrNoRows
}

func (m *memoryStore) DeleteArticle(_ context.Context, articleID int64) error {
	for i := range m.articles {
		if m.articles[i].ArticleID == articleID {
			m.articles = append(m.articles[:i], m.articles[i+1:]...)
			return nil
		}
	}
	return db.ErrNoRows
}

func (m *memoryStore) DuplicateSourceURLs(_ context.Context) ([]string, error) {
	if m.listDupErr != nil {
		return nil, m.listDupErr
	}
	counts := make(map[string]int)
	for _, article := range m.articles {
		counts[article.SourceURL]++
	}
	urls := make([]string, 0, len(counts))
	for url, n := range counts {
		if n > 1 {
			urls = append(urls, url)
		}
	}
	sort.Strings(urls)
	return urls, nil
}

func (m *memoryStore) ArticlesBySourceURL(_ context.Context, sourceURL string) ([]db.Article, error) {
	out := make([]db.Article, 0, 4)
	for _, article := range m.articles {
		if article.SourceURL == sourceURL {
			out = append(out, article)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScrapedAt.Equal(out[j].ScrapedAt) {
			return out[i].ScrapedAt.After(out[j].ScrapedAt)
		}
		return out[i].ArticleID > out[j].ArticleID
	})
	return out, nil
}

type stubLocator struct {
	lat      float64
	lng      float64
	ok       bool
	calls    int
	lastText string
}

func (s *stubLocator) ResolveText(_ context.Context, text string) (float64, float64, bool) {
	s.calls++
	s.lastText = text
	return s.lat, s.lng, s.ok
}

func rawRow(id int64, source, url, title, description string, scraped time.Time) db.RawArticle {
	return db.RawArticle{
		RawID:       id,
		Source:      source,
		SourceURL:   url,
		Title:       title,
		Description: description,
		ScrapedAt:   scraped,
	}
}

func TestRunInsertsUniqueAndGeolocates(t *testing.T) {
	t.Parallel()

	lat, lng := 24.3745, 88.6042
	withCoords := rawRow(2, "kalerkantho", "https://kalerkantho.com/b", "Cricket team wins series", "The national side wrapped up the series in style.", dayUTC(1))
	withCoords.Lat = &lat
	withCoords.Lng = &lng

	raw := &memoryRawSource{rows: []db.RawArticle{
		rawRow(1, "prothomalo", "https://prothomalo.com/a", "Dhaka flood kills five people", "Heavy monsoon rain flooded the old town area late Friday.", dayUTC(1)),
		withCoords,
	}}
	store := &memoryStore{}
	locator := &stubLocator{lat: 23.8103, lng: 90.4125, ok: true}

	engine := NewEngine(raw, store, locator, zerolog.Nop(), Options{})
	stats, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if stats.Processed != 2 || stats.UniqueAdded != 2 || stats.DuplicatesFound != 0 || stats.Errors != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.articles) != 2 {
		t.Fatalf("unexpected article count: %d", len(store.articles))
	}

	if locator.calls != 1 {
		t.Fatalf("locator called %d times (want 1)", locator.calls)
	}

	first, err := store.FindBySourceURL(context.Background(), "https://prothomalo.com/a")
	if err != nil {
		t.Fatalf("inserted article missing: %v", err)
	}
	if first.Lat == nil || first.Lng == nil || *first.Lat != 23.8103 || *first.Lng != 90.4125 {
		t.Fatalf("resolved coordinates not stored: %v %v", first.Lat, first.Lng)
	}

	second, err := store.FindBySourceURL(context.Background(), "https://kalerkantho.com/b")
	if err != nil {
		t.Fatalf("inserted article missing: %v", err)
	}
	if second.Lat == nil || *second.Lat != lat {
		t.Fatalf("existing coordinates overwritten: %v", second.Lat)
	}

	if stats.FinishedAt.Before(stats.StartedAt) || stats.DurationSeconds < 0 {
		t.Fatalf("unexpected timing: %+v", stats)
	}
}

func TestRunSameURLInBatchYieldsOneCanonical(t *testing.T) {
	t.Parallel()

	url := "https://prothomalo.com/a"
	raw := &memoryRawSource{rows: []db.RawArticle{
		rawRow(1, "prothomalo", url, "Dhaka flood kills five people", "First observation.", dayUTC(1)),
		rawRow(2, "prothomalo", url, "Dhaka flood kills five people, toll may rise", "Second observation with more detail.", dayUTC(2)),
	}}
	store := &memoryStore{}

	engine := NewEngine(raw, store, nil, zerolog.Nop(), Options{})
	stats, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if stats.Processed != 2 || stats.UniqueAdded != 1 || stats.DuplicatesFound != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.articles) != 1 {
		t.Fatalf("unexpected article count: %d", len(store.articles))
	}
}

func TestRunSameFingerprintInBatchSkips(t *testing.T) {
	t.Parallel()

	title := "Dhaka flood kills five people"
	description := "Heavy monsoon rain flooded the old town area late Friday."
	raw := &memoryRawSource{rows: []db.RawArticle{
		rawRow(1, "prothomalo", "https://prothomalo.com/a", title, description, dayUTC(1)),
		rawRow(2, "kalerkantho", "https://kalerkantho.com/mirror", title, description, dayUTC(1)),
	}}
	store := &memoryStore{}

	engine := NewEngine(raw, store, nil, zerolog.Nop(), Options{})
	stats, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if stats.UniqueAdded != 1 || stats.DuplicatesFound != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.articles) != 1 {
		t.Fatalf("unexpected article count: %d", len(store.articles))
	}
}

func TestRunMergesOnModerateTitleAndDescriptionSimilarity(t *testing.T) {
	t.Parallel()

	existingDesc := "Heavy monsoon rain flooded the old town area late Friday."
	longerDesc := existingDesc + " Rescue teams were deployed overnight."

	store := &memoryStore{}
	seeded := store.seed(db.Article{
		Source:      "prothomalo",
		SourceURL:   "https://prothomalo.com/a",
		Title:       "Dhaka flood kills five people",
		Description: existingDesc,
		ScrapedAt:   dayUTC(1),
		ImageURL:    strPtr("https://prothomalo.com/a.jpg"),
		Tags:        db.TagsJSON([]string{"flood"}),
	})

	incoming := rawRow(1, "kalerkantho", "https://kalerkantho.com/mirror", "Dhaka flood kills five persons", longerDesc, dayUTC(2))
	incoming.Tags = db.TagsJSON([]string{"dhaka"})
	raw := &memoryRawSource{rows: []db.RawArticle{incoming}}
	locator := &stubLocator{ok: true, lat: 1, lng: 1}

	engine := NewEngine(raw, store, locator, zerolog.Nop(), Options{})
	stats, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if stats.Updated != 1 || stats.DuplicatesFound != 1 || stats.UniqueAdded != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.articles) != 1 {
		t.Fatalf("unexpected article count: %d", len(store.articles))
	}
	if locator.calls != 0 {
		t.Fatalf("locator called on merge path: %d", locator.calls)
	}

	merged := store.articles[0]
	if merged.ArticleID != seeded.ArticleID || merged.SourceURL != seeded.SourceURL {
		t.Fatalf("merge changed identity: %+v", merged)
	}
	if merged.Description != longerDesc {
		t.Fatalf("longer description not adopted: %q", merged.Description)
	}
	if merged.ImageURL == nil || *merged.ImageURL != "https://prothomalo.com/a.jpg" {
		t.Fatalf("existing image lost: %v", merged.ImageURL)
	}
	if !merged.ScrapedAt.Equal(dayUTC(2)) {
		t.Fatalf("newer scrape date not adopted: %v", merged.ScrapedAt)
	}
	gotTags := db.TagList(merged.Tags)
	if len(gotTags) != 2 || gotTags[0] != "flood" || gotTags[1] != "dhaka" {
		t.Fatalf("unexpected tag union: %v", gotTags)
	}
}

func TestRunExactURLMatchShortCircuits(t *testing.T) {
	t.Parallel()

	url := "https://prothomalo.com/a"
	store := &memoryStore{}
	store.seed(db.Article{
		Source:    "prothomalo",
		SourceURL: url,
		Title:     "Completely different headline",
		ScrapedAt: dayUTC(1),
	})

	raw := &memoryRawSource{rows: []db.RawArticle{
		rawRow(1, "prothomalo", url, "Budget session opens amid protests", "Unrelated body text.", dayUTC(2)),
	}}

	engine := NewEngine(raw, store, nil, zerolog.Nop(), Options{})
	stats, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if stats.Updated != 1 || stats.DuplicatesFound != 1 || stats.UniqueAdded != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.articles) != 1 {
		t.Fatalf("unexpected article count: %d", len(store.articles))
	}
}

func TestRunAbsorbsInsertRaceAsDuplicate(t *testing.T) {
	t.Parallel()

	url := "https://prothomalo.com/contested"
	store := &memoryStore{conflictURLs: map[string]struct{}{url: {}}}
	raw := &memoryRawSource{rows: []db.RawArticle{
		rawRow(1, "prothomalo", url, "Dhaka flood kills five people", "Body.", dayUTC(1)),
	}}

	engine := NewEngine(raw, store, nil, zerolog.Nop(), Options{})
	stats, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if stats.DuplicatesFound != 1 || stats.UniqueAdded != 0 || stats.Errors != 0 {
		t.Fatalf("insert race not absorbed: %+v", stats)
	}
}

func TestRunCountsRecordErrorAndContinues(t *testing.T) {
	t.Parallel()

	failing := "https://prothomalo.com/broken"
	store := &memoryStore{findErrURL: failing}
	raw := &memoryRawSource{rows: []db.RawArticle{
		rawRow(1, "prothomalo", failing, "Dhaka flood kills five people", "Body one.", dayUTC(1)),
		rawRow(2, "kalerkantho", "https://kalerkantho.com/ok", "Cricket team wins series", "Body two.", dayUTC(1)),
		rawRow(3, "prothomalo", failing, "Dhaka flood kills five people", "Body one.", dayUTC(1)),
	}}

	engine := NewEngine(raw, store, nil, zerolog.Nop(), Options{})
	stats, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	// The failing record still lands in the batch-local sets, so its
	// reappearance is a duplicate, not a second error.
	if stats.Processed != 3 || stats.Errors != 1 || stats.UniqueAdded != 1 || stats.DuplicatesFound != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunFetchFailureReturnsPartialStats(t *testing.T) {
	t.Parallel()

	raw := &memoryRawSource{
		rows: []db.RawArticle{
			rawRow(1, "prothomalo", "https://prothomalo.com/a", "Dhaka flood kills five people", "Body one.", dayUTC(1)),
			rawRow(2, "kalerkantho", "https://kalerkantho.com/b", "Cricket team wins series", "Body two.", dayUTC(1)),
			rawRow(3, "ittefaq", "https://ittefaq.com.bd/c", "Port city braces for storm", "Body three.", dayUTC(1)),
		},
		failOnCall: 2,
	}
	store := &memoryStore{}

	engine := NewEngine(raw, store, nil, zerolog.Nop(), Options{BatchSize: 2})
	stats, err := engine.Run(context.Background())
	if err == nil {
		t.Fatal("expected run error, got nil")
	}
	if stats.Processed != 2 || stats.UniqueAdded != 2 {
		t.Fatalf("partial stats missing: %+v", stats)
	}
}

func TestCompactFoldsDuplicateGroups(t *testing.T) {
	t.Parallel()

	url := "https://prothomalo.com/dup"
	published := dayUTC(4)
	laterPublished := dayUTC(6)

	store := &memoryStore{}
	oldest := store.seed(db.Article{
		SourceURL:   url,
		Source:      "prothomalo",
		Title:       "Dhaka flood kills five people",
		Description: "short",
		ScrapedAt:   dayUTC(1),
		PublishedAt: &laterPublished,
		Tags:        db.TagsJSON([]string{"flood"}),
	})
	newest := store.seed(db.Article{
		SourceURL:   url,
		Source:      "prothomalo",
		Title:       "Dhaka flood kills five people",
		Description: "medium length text",
		ScrapedAt:   dayUTC(3),
		Tags:        db.TagsJSON([]string{"dhaka"}),
	})
	middle := store.seed(db.Article{
		SourceURL:   url,
		Source:      "prothomalo",
		Title:       "Dhaka flood kills five people",
		Description: "the longest description body of them all",
		ScrapedAt:   dayUTC(2),
		PublishedAt: &published,
		ImageURL:    strPtr("https://prothomalo.com/dup.jpg"),
		Tags:        db.TagsJSON([]string{"flood", "rain"}),
	})
	singleton := store.seed(db.Article{
		SourceURL: "https://kalerkantho.com/single",
		Source:    "kalerkantho",
		Title:     "Cricket team wins series",
		ScrapedAt: dayUTC(1),
	})

	engine := NewEngine(&memoryRawSource{}, store, nil, zerolog.Nop(), Options{})
	stats, err := engine.Compact(context.Background())
	if err != nil {
		t.Fatalf("unexpected compaction error: %v", err)
	}

	if stats.Checked != 3 || stats.DuplicatesRemoved != 2 || stats.Errors != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(store.articles) != 2 {
		t.Fatalf("unexpected article count: %d", len(store.articles))
	}

	folded, err := store.FindBySourceURL(context.Background(), url)
	if err != nil {
		t.Fatalf("folded article missing: %v", err)
	}
	if folded.ArticleID != newest.ArticleID {
		t.Fatalf("newest member not kept: id %d (want %d)", folded.ArticleID, newest.ArticleID)
	}
	if folded.Description != middle.Description {
		t.Fatalf("longest description not kept: %q", folded.Description)
	}
	if folded.ImageURL == nil || *folded.ImageURL != *middle.ImageURL {
		t.Fatalf("image not folded in: %v", folded.ImageURL)
	}
	if folded.PublishedAt == nil || !folded.PublishedAt.Equal(published) {
		t.Fatalf("earliest publish date not kept: %v", folded.PublishedAt)
	}
	gotTags := db.TagList(folded.Tags)
	if len(gotTags) != 3 {
		t.Fatalf("unexpected tag union: %v", gotTags)
	}
	if !folded.ScrapedAt.Equal(newest.ScrapedAt) {
		t.Fatalf("scrape date changed: %v", folded.ScrapedAt)
	}

	if _, err := store.FindBySourceURL(context.Background(), singleton.SourceURL); err != nil {
		t.Fatalf("singleton disturbed: %v", err)
	}
	for _, article := range store.articles {
		if article.ArticleID == oldest.ArticleID || article.ArticleID == middle.ArticleID {
			t.Fatalf("duplicate member %d not deleted", article.ArticleID)
		}
	}

	again, err := engine.Compact(context.Background())
	if err != nil {
		t.Fatalf("unexpected second compaction error: %v", err)
	}
	if again.Checked != 0 || again.DuplicatesRemoved != 0 {
		t.Fatalf("compaction not idempotent: %+v", again)
	}
}

func TestCompactStoreFailureReturnsError(t *testing.T) {
	t.Parallel()

	store := &memoryStore{listDupErr: fmt.Errorf("store unreachable")}
	engine := NewEngine(&memoryRawSource{}, store, nil, zerolog.Nop(), Options{})

	stats, err := engine.Compact(context.Background())
	if err == nil {
		t.Fatal("expected compaction error, got nil")
	}
	if stats.Checked != 0 || stats.DuplicatesRemoved != 0 {
		t.Fatalf("unexpected stats on failure: %+v", stats)
	}
}
