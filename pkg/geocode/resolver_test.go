package geocode

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider replays scripted results and records the queries it saw.
type fakeProvider struct {
	name      string
	available bool

	mu      sync.Mutex
	queries []string
	results map[string]*Result
	errs    map[string]error
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{
		name:      name,
		available: true,
		results:   make(map[string]*Result),
		errs:      make(map[string]error),
	}
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) Geocode(_ context.Context, query string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return &Result{Matched: false, Source: f.name}, nil
}

func (f *fakeProvider) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func newTestCache(t *testing.T) *FileCache {
	t.Helper()
	c := NewFileCache(filepath.Join(t.TempDir(), "cache.csv"))
	require.NoError(t, c.Load())
	return c
}

func TestResolver_CacheHitSkipsNetworkAndDelay(t *testing.T) {
	cache := newTestCache(t)
	cache.Store("1 Main St, Sampletown, NSW 2000, Australia", Coordinate{Latitude: -33.8, Longitude: 151.2})

	provider := newFakeProvider("nominatim")
	r := NewResolver(cache, provider)

	start := time.Now()
	res := r.Resolve(context.Background(), []string{"1 Main St, Sampletown, NSW 2000, Australia"})
	elapsed := time.Since(start)

	require.True(t, res.Resolved)
	assert.True(t, res.FromCache)
	assert.InDelta(t, -33.8, res.Coordinate.Latitude, 1e-9)
	assert.Empty(t, provider.calls(), "cache hit must not reach the network")
	assert.Less(t, elapsed, 100*time.Millisecond, "cache hit must not incur the rate-limit delay")
}

func TestResolver_FallbackOrderStopsAtFirstSuccess(t *testing.T) {
	cache := newTestCache(t)
	provider := newFakeProvider("nominatim")
	// A and B miss, C matches.
	provider.results["C"] = &Result{Latitude: -33.8, Longitude: 151.2, Source: "nominatim", Matched: true}

	r := NewResolver(cache, provider)
	res := r.Resolve(context.Background(), []string{"A", "B", "C"})

	require.True(t, res.Resolved)
	assert.InDelta(t, -33.8, res.Coordinate.Latitude, 1e-9)
	assert.Equal(t, []string{"A", "B", "C"}, provider.calls(), "exactly A, B, C in order, nothing after the success")
}

func TestResolver_NetworkSuccessIsCached(t *testing.T) {
	cache := newTestCache(t)
	provider := newFakeProvider("nominatim")
	provider.results["Q"] = &Result{Latitude: 1, Longitude: 2, Source: "nominatim", Matched: true}

	r := NewResolver(cache, provider)
	res := r.Resolve(context.Background(), []string{"Q"})
	require.True(t, res.Resolved)

	coord, ok := cache.Lookup("Q")
	require.True(t, ok, "the exact query must be cached after a network resolution")
	assert.InDelta(t, 1.0, coord.Latitude, 1e-9)

	// Second resolution of the same query is pure cache.
	res2 := r.Resolve(context.Background(), []string{"Q"})
	require.True(t, res2.Resolved)
	assert.True(t, res2.FromCache)
	assert.Len(t, provider.calls(), 1, "no second network call")
}

func TestResolver_ProviderErrorAdvancesCandidate(t *testing.T) {
	cache := newTestCache(t)
	provider := newFakeProvider("nominatim")
	provider.errs["A"] = eris.New("connection reset")
	provider.results["B"] = &Result{Latitude: 5, Longitude: 6, Source: "nominatim", Matched: true}

	r := NewResolver(cache, provider)
	res := r.Resolve(context.Background(), []string{"A", "B"})

	require.True(t, res.Resolved)
	assert.InDelta(t, 5.0, res.Coordinate.Latitude, 1e-9)

	// The failed candidate was not retried and was not cached.
	assert.Equal(t, []string{"A", "B"}, provider.calls())
	_, ok := cache.Lookup("A")
	assert.False(t, ok)
}

func TestResolver_AllCandidatesExhausted(t *testing.T) {
	cache := newTestCache(t)
	provider := newFakeProvider("nominatim")

	r := NewResolver(cache, provider)
	res := r.Resolve(context.Background(), []string{"A", "B", "C"})

	assert.False(t, res.Resolved, "absent is a normal outcome, not an error")
	assert.Equal(t, 0, cache.Len(), "negatives are never cached")
}

func TestResolver_UnavailableProviderSkipped(t *testing.T) {
	cache := newTestCache(t)
	primary := newFakeProvider("nominatim")
	fallback := newFakeProvider("google")
	fallback.available = false
	fallback.results["Q"] = &Result{Latitude: 1, Longitude: 1, Source: "google", Matched: true}

	r := NewResolver(cache, primary, fallback)
	res := r.Resolve(context.Background(), []string{"Q"})

	assert.False(t, res.Resolved)
	assert.Empty(t, fallback.calls(), "unavailable provider must not be called")
}

func TestResolver_SecondProviderInCascade(t *testing.T) {
	cache := newTestCache(t)
	primary := newFakeProvider("nominatim")
	fallback := newFakeProvider("google")
	fallback.results["Q"] = &Result{Latitude: 7, Longitude: 8, Source: "google", Matched: true}

	r := NewResolver(cache, primary, fallback)
	res := r.Resolve(context.Background(), []string{"Q"})

	require.True(t, res.Resolved)
	assert.Equal(t, "google", res.Source)
	assert.Equal(t, []string{"Q"}, primary.calls())
	assert.Equal(t, []string{"Q"}, fallback.calls())
}

func TestResolver_FromCacheOnly(t *testing.T) {
	cache := newTestCache(t)
	cache.Store("B", Coordinate{Latitude: 3, Longitude: 4})
	provider := newFakeProvider("nominatim")

	r := NewResolver(cache, provider)

	res, ok := r.FromCacheOnly([]string{"A", "B"})
	require.True(t, ok)
	assert.True(t, res.FromCache)
	assert.InDelta(t, 3.0, res.Coordinate.Latitude, 1e-9)

	_, ok = r.FromCacheOnly([]string{"A", "C"})
	assert.False(t, ok)
	assert.Empty(t, provider.calls(), "partition must never reach the network")
}
