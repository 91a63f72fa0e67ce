package sources

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	registry, err := Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry.Len() != 11 {
		t.Fatalf("unexpected source count: %d", registry.Len())
	}

	keys := registry.Keys()
	if keys[0] != "prothom_alo" || keys[len(keys)-1] != "business_standard" {
		t.Fatalf("unexpected key order: %q", keys)
	}

	source, err := registry.Get("prothom_alo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.Name != "Prothom Alo" {
		t.Fatalf("unexpected name: %q", source.Name)
	}
	if source.BaseURL != "https://www.prothomalo.com" {
		t.Fatalf("unexpected base url: %q", source.BaseURL)
	}
	if len(source.Feeds) != 5 {
		t.Fatalf("unexpected feed count: %d", len(source.Feeds))
	}
	if source.Selectors.Title == "" || source.Selectors.Description == "" {
		t.Fatalf("expected selectors to be configured: %+v", source.Selectors)
	}
}

func TestRegistryGetUnknownSource(t *testing.T) {
	t.Parallel()

	registry, err := Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = registry.Get("nonexistent_outlet")
	if !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	t.Parallel()

	registry, err := Parse([]byte(`
sources:
  - key: beta
    name: Beta
    base_url: https://beta.example.com
    rss_feeds: [https://beta.example.com/feed]
  - key: alpha
    name: Alpha
    base_url: https://alpha.example.com
    rss_feeds: [https://alpha.example.com/feed]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := registry.All()
	if len(all) != 2 || all[0].Key != "beta" || all[1].Key != "alpha" {
		t.Fatalf("unexpected order: %+v", all)
	}
}

func TestParseRejectsInvalidRegistries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty",
			yaml:    "sources: []",
			wantErr: "no sources configured",
		},
		{
			name: "missing name",
			yaml: `
sources:
  - key: alpha
    base_url: https://alpha.example.com
    rss_feeds: [https://alpha.example.com/feed]
`,
			wantErr: "name is required",
		},
		{
			name: "missing feeds",
			yaml: `
sources:
  - key: alpha
    name: Alpha
    base_url: https://alpha.example.com
`,
			wantErr: "at least one rss feed",
		},
		{
			name: "bad base url",
			yaml: `
sources:
  - key: alpha
    name: Alpha
    base_url: ftp://alpha.example.com
    rss_feeds: [https://alpha.example.com/feed]
`,
			wantErr: "not an http(s) url",
		},
		{
			name: "duplicate key",
			yaml: `
sources:
  - key: alpha
    name: Alpha
    base_url: https://alpha.example.com
    rss_feeds: [https://alpha.example.com/feed]
  - key: alpha
    name: Alpha Again
    base_url: https://alpha2.example.com
    rss_feeds: [https://alpha2.example.com/feed]
`,
			wantErr: "duplicate source key",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("unexpected error: %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sources.yml")
	content := `
sources:
  - key: test_outlet
    name: Test Outlet
    base_url: https://news.example.com
    rss_feeds: [https://news.example.com/feed]
    selectors:
      title: "h1"
      description: ".body p"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	registry, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry.Len() != 1 {
		t.Fatalf("unexpected source count: %d", registry.Len())
	}
	source, err := registry.Get("test_outlet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.Selectors.Title != "h1" {
		t.Fatalf("unexpected title selector: %q", source.Selectors.Title)
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	t.Parallel()

	registry, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry.Len() != 11 {
		t.Fatalf("unexpected source count: %d", registry.Len())
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
