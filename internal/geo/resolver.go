package geo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultPlace anchors articles that mention no known place.
	DefaultPlace = "Dhaka"

	// DefaultMinInterval spaces geocoding requests per the public
	// Nominatim usage policy.
	DefaultMinInterval = time.Second

	countryQualifier = "Bangladesh"
)

// Geocoder resolves a free-text query to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (lat, lng float64, found bool, err error)
}

type cacheEntry struct {
	lat   float64
	lng   float64
	found bool
}

// Resolver turns article text into coordinates: it extracts place
// names, geocodes them in pattern-table order, and falls back to the
// default place when nothing else resolves. Lookups are cached for the
// resolver's lifetime, misses included, and all requests pass through
// one rate gate.
type Resolver struct {
	geocoder Geocoder
	logger   zerolog.Logger
	limiter  *rate.Limiter

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// ResolverOptions tunes resolver behavior.
type ResolverOptions struct {
	// MinInterval is the minimum spacing between geocoding requests.
	// Zero selects DefaultMinInterval.
	MinInterval time.Duration
}

// NewResolver builds a resolver around the given geocoder.
func NewResolver(geocoder Geocoder, logger zerolog.Logger, opts ResolverOptions) *Resolver {
	interval := opts.MinInterval
	if interval <= 0 {
		interval = DefaultMinInterval
	}

	return &Resolver{
		geocoder: geocoder,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		cache:    make(map[string]cacheEntry),
	}
}

// ResolveText geocodes the first resolvable place mentioned in text.
// When the text names no known place, or none of the mentions resolve,
// the default place is tried instead. ok is false only when even that
// fails.
func (r *Resolver) ResolveText(ctx context.Context, text string) (lat, lng float64, ok bool) {
	locations := ExtractLocations(text)
	if len(locations) == 0 {
		return r.resolvePlace(ctx, DefaultPlace)
	}

	for _, location := range locations {
		if lat, lng, ok := r.resolvePlace(ctx, location); ok {
			return lat, lng, true
		}
	}

	return r.resolvePlace(ctx, DefaultPlace)
}

// resolvePlace geocodes one place name, qualified with the country.
// Failures and empty results are cached as not-found so a bad name
// costs one request per resolver lifetime.
func (r *Resolver) resolvePlace(ctx context.Context, location string) (float64, float64, bool) {
	location = strings.TrimSpace(location)
	if location == "" {
		return 0, 0, false
	}

	key := strings.ToLower(location)
	if entry, hit := r.lookupCache(key); hit {
		return entry.lat, entry.lng, entry.found
	}

	if err := r.limiter.Wait(ctx); err != nil {
		// Canceled before the request went out; leave the cache alone
		// so a later attempt still tries.
		return 0, 0, false
	}

	lat, lng, found, err := r.geocoder.Geocode(ctx, location+", "+countryQualifier)
	if err != nil {
		r.logger.Warn().Err(err).Str("location", location).Msg("geocoding failed")
		r.storeCache(key, cacheEntry{})
		return 0, 0, false
	}
	if !found {
		r.logger.Debug().Str("location", location).Msg("location not found")
		r.storeCache(key, cacheEntry{})
		return 0, 0, false
	}

	r.logger.Debug().
		Str("location", location).
		Float64("lat", lat).
		Float64("lng", lng).
		Msg("location resolved")
	r.storeCache(key, cacheEntry{lat: lat, lng: lng, found: true})
	return lat, lng, true
}

func (r *Resolver) lookupCache(key string) (cacheEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, hit := r.cache[key]
	return entry, hit
}

func (r *Resolver) storeCache(key string, entry cacheEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = entry
}

// CacheStats reports what the resolver has looked up so far.
type CacheStats struct {
	Size      int      `json:"size"`
	Locations []string `json:"locations"`
}

// CacheStats snapshots the lookup cache, hits and misses alike.
func (r *Resolver) CacheStats() CacheStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	locations := make([]string, 0, len(r.cache))
	for key := range r.cache {
		locations = append(locations, key)
	}
	sort.Strings(locations)

	return CacheStats{Size: len(locations), Locations: locations}
}
