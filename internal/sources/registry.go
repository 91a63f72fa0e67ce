// Package sources holds the configured news outlets: which feeds to
// poll and which CSS selectors pull fields out of their article pages.
package sources

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yml
var defaultSourcesYAML []byte

var (
	// ErrUnknownSource is returned when a source key is not configured.
	ErrUnknownSource = errors.New("unknown source")

	// ErrNoSources is returned when a registry file defines no sources.
	ErrNoSources = errors.New("no sources configured")
)

// Selectors are the CSS selectors used to extract fields from an
// article page. Each may hold a comma-separated selector list.
type Selectors struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	Date        string `yaml:"date"`
}

// Source describes one configured news outlet.
type Source struct {
	Key       string    `yaml:"key"`
	Name      string    `yaml:"name"`
	BaseURL   string    `yaml:"base_url"`
	Feeds     []string  `yaml:"rss_feeds"`
	Selectors Selectors `yaml:"selectors"`
}

// Validate checks that the source carries everything the scraper needs.
func (s Source) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("source key is required")
	}
	if s.Name == "" {
		return fmt.Errorf("source %q: name is required", s.Key)
	}
	if err := validateHTTPURL(s.BaseURL); err != nil {
		return fmt.Errorf("source %q: base_url: %w", s.Key, err)
	}
	if len(s.Feeds) == 0 {
		return fmt.Errorf("source %q: at least one rss feed is required", s.Key)
	}
	for _, feed := range s.Feeds {
		if err := validateHTTPURL(feed); err != nil {
			return fmt.Errorf("source %q: rss feed: %w", s.Key, err)
		}
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) url", raw)
	}
	return nil
}

type registryFile struct {
	Sources []Source `yaml:"sources"`
}

// Registry is a validated, ordered set of sources. Order follows the
// configuration file and is what "all sources" operations iterate in.
type Registry struct {
	byKey map[string]Source
	keys  []string
}

// Default loads the embedded source set.
func Default() (*Registry, error) {
	return Parse(defaultSourcesYAML)
}

// Load reads a registry from a YAML file, or the embedded default when
// path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	registry, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	return registry, nil
}

// Parse builds a registry from YAML bytes, validating every source and
// rejecting duplicate keys.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources yaml: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, ErrNoSources
	}

	registry := &Registry{
		byKey: make(map[string]Source, len(file.Sources)),
		keys:  make([]string, 0, len(file.Sources)),
	}
	for i, source := range file.Sources {
		if err := source.Validate(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		if _, exists := registry.byKey[source.Key]; exists {
			return nil, fmt.Errorf("duplicate source key %q", source.Key)
		}
		registry.byKey[source.Key] = source
		registry.keys = append(registry.keys, source.Key)
	}
	return registry, nil
}

// All returns every source in registry order.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.keys))
	for _, key := range r.keys {
		out = append(out, r.byKey[key])
	}
	return out
}

// Get looks up one source by key.
func (r *Registry) Get(key string) (Source, error) {
	source, ok := r.byKey[key]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
	return source, nil
}

// Keys returns the configured source keys in registry order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len reports the number of configured sources.
func (r *Registry) Len() int {
	return len(r.keys)
}
