package geo

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type geoPoint struct {
	lat   float64
	lng   float64
	found bool
}

type stubGeocoder struct {
	mu      sync.Mutex
	results map[string]geoPoint
	errOn   map[string]error
	calls   []string
	callAt  []time.Time
}

func (s *stubGeocoder) Geocode(ctx context.Context, query string) (float64, float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, query)
	s.callAt = append(s.callAt, time.Now())
	if err, ok := s.errOn[query]; ok {
		return 0, 0, false, err
	}
	if p, ok := s.results[query]; ok {
		return p.lat, p.lng, p.found, nil
	}
	return 0, 0, false, nil
}

func (s *stubGeocoder) queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubGeocoder) spread() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.callAt) < 2 {
		return 0
	}
	return s.callAt[len(s.callAt)-1].Sub(s.callAt[0])
}

func newTestResolver(geocoder Geocoder) *Resolver {
	return NewResolver(geocoder, zerolog.Nop(), ResolverOptions{MinInterval: time.Millisecond})
}

func TestResolveTextUsesFirstResolvablePlace(t *testing.T) {
	t.Parallel()

	stub := &stubGeocoder{results: map[string]geoPoint{
		"Sylhet, Bangladesh": {lat: 24.8949, lng: 91.8687, found: true},
	}}
	resolver := newTestResolver(stub)

	lat, lng, ok := resolver.ResolveText(context.Background(), "Flooding hit Sylhet and Dhaka")
	if !ok {
		t.Fatal("expected a resolved location")
	}
	if lat != 24.8949 || lng != 91.8687 {
		t.Fatalf("unexpected coordinates: %v, %v", lat, lng)
	}

	// Dhaka sits earlier in the place table, so it is tried first and
	// skipped when the lookup comes back empty.
	want := []string{"Dhaka, Bangladesh", "Sylhet, Bangladesh"}
	if got := stub.queries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected queries: %q, want %q", got, want)
	}
}

func TestResolveTextDefaultsWhenNoPlaceMentioned(t *testing.T) {
	t.Parallel()

	stub := &stubGeocoder{results: map[string]geoPoint{
		"Dhaka, Bangladesh": {lat: 23.8103, lng: 90.4125, found: true},
	}}
	resolver := newTestResolver(stub)

	lat, lng, ok := resolver.ResolveText(context.Background(), "global markets rallied on Friday")
	if !ok {
		t.Fatal("expected the default place to resolve")
	}
	if lat != 23.8103 || lng != 90.4125 {
		t.Fatalf("unexpected coordinates: %v, %v", lat, lng)
	}
	want := []string{"Dhaka, Bangladesh"}
	if got := stub.queries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected queries: %q, want %q", got, want)
	}
}

func TestResolveTextFallsBackToDefault(t *testing.T) {
	t.Parallel()

	stub := &stubGeocoder{results: map[string]geoPoint{
		"Dhaka, Bangladesh": {lat: 23.8103, lng: 90.4125, found: true},
	}}
	resolver := newTestResolver(stub)

	lat, lng, ok := resolver.ResolveText(context.Background(), "Landslide warning for Rangamati")
	if !ok {
		t.Fatal("expected fallback to resolve")
	}
	if lat != 23.8103 || lng != 90.4125 {
		t.Fatalf("unexpected coordinates: %v, %v", lat, lng)
	}
	want := []string{"Rangamati, Bangladesh", "Dhaka, Bangladesh"}
	if got := stub.queries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected queries: %q, want %q", got, want)
	}
}

func TestResolveCachesPositiveLookups(t *testing.T) {
	t.Parallel()

	stub := &stubGeocoder{results: map[string]geoPoint{
		"Khulna, Bangladesh": {lat: 22.8456, lng: 89.5403, found: true},
	}}
	resolver := newTestResolver(stub)

	for i := 0; i < 3; i++ {
		lat, lng, ok := resolver.ResolveText(context.Background(), "Ferry service resumes in Khulna")
		if !ok || lat != 22.8456 || lng != 89.5403 {
			t.Fatalf("resolve %d: unexpected result %v, %v, %v", i, lat, lng, ok)
		}
	}
	if got := stub.queries(); len(got) != 1 {
		t.Fatalf("expected a single geocoding request, got %q", got)
	}
}

func TestResolveCachesMisses(t *testing.T) {
	t.Parallel()

	stub := &stubGeocoder{}
	resolver := newTestResolver(stub)

	for i := 0; i < 2; i++ {
		if _, _, ok := resolver.ResolveText(context.Background(), "Storm nears Bhola"); ok {
			t.Fatalf("resolve %d: expected no result", i)
		}
	}

	// Both the mentioned place and the default fallback miss once and
	// are answered from cache afterwards.
	want := []string{"Bhola, Bangladesh", "Dhaka, Bangladesh"}
	if got := stub.queries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected queries: %q, want %q", got, want)
	}
}

func TestResolveCachesServiceErrorsAsMisses(t *testing.T) {
	t.Parallel()

	stub := &stubGeocoder{
		results: map[string]geoPoint{
			"Dhaka, Bangladesh": {lat: 23.8103, lng: 90.4125, found: true},
		},
		errOn: map[string]error{
			"Feni, Bangladesh": errors.New("upstream unavailable"),
		},
	}
	resolver := newTestResolver(stub)

	lat, lng, ok := resolver.ResolveText(context.Background(), "Bridge reopened in Feni")
	if !ok || lat != 23.8103 || lng != 90.4125 {
		t.Fatalf("unexpected result: %v, %v, %v", lat, lng, ok)
	}

	// The failing place is not retried on the next resolve.
	if _, _, ok := resolver.ResolveText(context.Background(), "Feni markets reopen"); !ok {
		t.Fatal("expected cached default to resolve")
	}
	want := []string{"Feni, Bangladesh", "Dhaka, Bangladesh"}
	if got := stub.queries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected queries: %q, want %q", got, want)
	}
}

func TestResolveSpacesOutRequests(t *testing.T) {
	t.Parallel()

	const interval = 50 * time.Millisecond

	stub := &stubGeocoder{}
	resolver := NewResolver(stub, zerolog.Nop(), ResolverOptions{MinInterval: interval})

	// Two unresolvable places plus the default fallback: three requests.
	resolver.ResolveText(context.Background(), "Sylhet and Rajshahi under water")

	if got := stub.queries(); len(got) != 3 {
		t.Fatalf("expected 3 requests, got %q", got)
	}
	if spread := stub.spread(); spread < 2*interval-time.Millisecond {
		t.Fatalf("requests too close together: %v", spread)
	}
}

func TestResolveSerializesConcurrentRequests(t *testing.T) {
	t.Parallel()

	const interval = 50 * time.Millisecond

	stub := &stubGeocoder{results: map[string]geoPoint{
		"Khulna, Bangladesh":  {lat: 22.8, lng: 89.5, found: true},
		"Rangpur, Bangladesh": {lat: 25.7, lng: 89.2, found: true},
		"Comilla, Bangladesh": {lat: 23.4, lng: 91.1, found: true},
		"Feni, Bangladesh":    {lat: 23.0, lng: 91.3, found: true},
	}}
	resolver := NewResolver(stub, zerolog.Nop(), ResolverOptions{MinInterval: interval})

	texts := []string{
		"Fire doused in Khulna",
		"Cold wave hits Rangpur",
		"Comilla highway reopens",
		"Feni embankment repaired",
	}

	var wg sync.WaitGroup
	for _, text := range texts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			if _, _, ok := resolver.ResolveText(context.Background(), text); !ok {
				t.Errorf("expected %q to resolve", text)
			}
		}(text)
	}
	wg.Wait()

	if got := stub.queries(); len(got) != 4 {
		t.Fatalf("expected 4 requests, got %q", got)
	}
	if spread := stub.spread(); spread < 3*interval-time.Millisecond {
		t.Fatalf("requests too close together: %v", spread)
	}
}

func TestResolveCanceledWaitLeavesCacheCold(t *testing.T) {
	t.Parallel()

	stub := &stubGeocoder{results: map[string]geoPoint{
		"Khulna, Bangladesh": {lat: 22.8, lng: 89.5, found: true},
	}}
	resolver := NewResolver(stub, zerolog.Nop(), ResolverOptions{MinInterval: time.Hour})

	// The first request spends the limiter's only burst token.
	if _, _, ok := resolver.ResolveText(context.Background(), "Khulna port update"); !ok {
		t.Fatal("expected first resolve to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, ok := resolver.ResolveText(ctx, "Rangpur fair opens"); ok {
		t.Fatal("expected canceled resolve to fail")
	}

	// Nothing was sent for the canceled lookup, and nothing was cached.
	if got := stub.queries(); len(got) != 1 {
		t.Fatalf("expected 1 request, got %q", got)
	}
	stats := resolver.CacheStats()
	want := CacheStats{Size: 1, Locations: []string{"khulna"}}
	if !reflect.DeepEqual(stats, want) {
		t.Fatalf("unexpected cache stats: %+v, want %+v", stats, want)
	}
}

func TestCacheStatsSortsLocations(t *testing.T) {
	t.Parallel()

	stub := &stubGeocoder{results: map[string]geoPoint{
		"Sylhet, Bangladesh": {lat: 24.9, lng: 91.9, found: true},
		"Dhaka, Bangladesh":  {lat: 23.8, lng: 90.4, found: true},
	}}
	resolver := newTestResolver(stub)

	resolver.ResolveText(context.Background(), "Sylhet tea gardens reopen")
	resolver.ResolveText(context.Background(), "Dhaka metro extends hours")

	stats := resolver.CacheStats()
	want := CacheStats{Size: 2, Locations: []string{"dhaka", "sylhet"}}
	if !reflect.DeepEqual(stats, want) {
		t.Fatalf("unexpected cache stats: %+v, want %+v", stats, want)
	}
}
