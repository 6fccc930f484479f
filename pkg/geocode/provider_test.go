package geocode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salesdash/internal/resilience"
)

// mockProvider implements Provider for testing cascade behavior.
type mockProvider struct {
	name      string
	available bool
	result    *Result
	err       error
	calls     atomic.Int32
}

func (m *mockProvider) Name() string    { return m.name }
func (m *mockProvider) Available() bool { return m.available }
func (m *mockProvider) Geocode(_ context.Context, _ string) (*Result, error) {
	m.calls.Add(1)
	return m.result, m.err
}

// memCache is an in-memory Cache for cascade tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string]Result
	getErr  error
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]Result)} }

func (c *memCache) Get(_ context.Context, key string) (*Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	r, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *memCache) Set(_ context.Context, key string, r *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *r
	return nil
}

func matched(source string, lat, lng float64) *Result {
	return &Result{Latitude: lat, Longitude: lng, Source: source, Quality: "centroid", Matched: true}
}

func TestCascade_FirstProviderMatches(t *testing.T) {
	first := &mockProvider{name: "google", available: true, result: matched("google", 18.52, 73.85)}
	second := &mockProvider{name: "nominatim", available: true, result: matched("nominatim", 1, 1)}

	c := NewCascadeClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), "Pune, India")
	require.NoError(t, err)
	assert.Equal(t, "google", result.Source)
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestCascade_FallsThroughOnError(t *testing.T) {
	first := &mockProvider{name: "google", available: true, err: errors.New("boom")}
	second := &mockProvider{name: "nominatim", available: true, result: matched("nominatim", 26.91, 75.81)}

	c := NewCascadeClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), "Jaipur, India")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
}

func TestCascade_SkipsUnavailable(t *testing.T) {
	first := &mockProvider{name: "google", available: false, result: matched("google", 1, 1)}
	second := &mockProvider{name: "nominatim", available: true, result: matched("nominatim", 2, 2)}

	c := NewCascadeClient([]Provider{first, second})
	result, err := c.Geocode(context.Background(), "Pune, India")
	require.NoError(t, err)
	assert.Equal(t, "nominatim", result.Source)
	assert.Equal(t, int32(0), first.calls.Load())
}

func TestCascade_AllMissCachesNegative(t *testing.T) {
	p := &mockProvider{name: "nominatim", available: true, result: &Result{Matched: false, Source: "nominatim"}}
	cache := newMemCache()

	c := NewCascadeClient([]Provider{p}, WithCache(cache))
	result, err := c.Geocode(context.Background(), "UnknownVillageXYZ, India")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "cascade", result.Source)

	// Same query modulo case and spacing is served from the negative entry.
	result, err = c.Geocode(context.Background(), "unknownvillagexyz,  INDIA")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCascade_MatchIsCached(t *testing.T) {
	p := &mockProvider{name: "nominatim", available: true, result: matched("nominatim", 19.07, 72.87)}
	cache := newMemCache()

	c := NewCascadeClient([]Provider{p}, WithCache(cache))
	for range 3 {
		result, err := c.Geocode(context.Background(), "Mumbai, India")
		require.NoError(t, err)
		assert.InDelta(t, 19.07, result.Latitude, 0.001)
	}
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Len(t, cache.entries, 1)
}

func TestCascade_CacheErrorFallsThroughToProvider(t *testing.T) {
	p := &mockProvider{name: "nominatim", available: true, result: matched("nominatim", 19.07, 72.87)}
	cache := newMemCache()
	cache.getErr = errors.New("db locked")

	c := NewCascadeClient([]Provider{p}, WithCache(cache))
	result, err := c.Geocode(context.Background(), "Mumbai, India")
	require.NoError(t, err)
	assert.True(t, result.Matched)
}

func TestCascade_AllErrorsNotCached(t *testing.T) {
	p := &mockProvider{name: "nominatim", available: true, err: errors.New("timeout")}
	cache := newMemCache()

	c := NewCascadeClient([]Provider{p}, WithCache(cache))
	_, err := c.Geocode(context.Background(), "Pune, India")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
	assert.Empty(t, cache.entries)
}

func TestCascade_MissAfterErrorNotCached(t *testing.T) {
	google := &mockProvider{name: "google", available: true, err: errors.New("quota exceeded")}
	nominatim := &mockProvider{name: "nominatim", available: true, result: &Result{Matched: false, Source: "nominatim"}}
	cache := newMemCache()

	c := NewCascadeClient([]Provider{google, nominatim}, WithCache(cache))
	result, err := c.Geocode(context.Background(), "Pune, India")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Empty(t, cache.entries)

	// Once google recovers the same query reaches it again.
	google.err = nil
	google.result = matched("google", 18.52, 73.85)
	result, err = c.Geocode(context.Background(), "Pune, India")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "google", result.Source)
	assert.Equal(t, int32(2), google.calls.Load())
	assert.Len(t, cache.entries, 1)
}

func TestCascade_NoProvider(t *testing.T) {
	c := NewCascadeClient([]Provider{&mockProvider{name: "google"}})
	assert.False(t, c.Available())

	_, err := c.Geocode(context.Background(), "Pune, India")
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = c.BatchGeocode(context.Background(), []string{"Pune, India"})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestCascade_EmptyQuery(t *testing.T) {
	p := &mockProvider{name: "nominatim", available: true, result: matched("nominatim", 1, 1)}
	c := NewCascadeClient([]Provider{p})

	result, err := c.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestCascade_BreakerOpensAndSkipsProvider(t *testing.T) {
	failing := &mockProvider{name: "google", available: true, err: errors.New("quota")}
	backup := &mockProvider{name: "nominatim", available: true, result: matched("nominatim", 1, 1)}

	breakers := resilience.NewBreakers(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	c := NewCascadeClient([]Provider{failing, backup}, WithBreakers(breakers))

	for range 5 {
		result, err := c.Geocode(context.Background(), "Pune, India")
		require.NoError(t, err)
		assert.Equal(t, "nominatim", result.Source)
	}

	assert.Equal(t, int32(2), failing.calls.Load())
	assert.Equal(t, resilience.CircuitOpen, breakers.Get("google").State())
}

func TestCascade_BatchPreservesOrder(t *testing.T) {
	p := &queryEchoProvider{}
	c := NewCascadeClient([]Provider{p}, WithBatchConcurrency(3))

	queries := []string{"A, India", "BB, India", "CCC, India", "", "EEEEE, India"}
	results, err := c.BatchGeocode(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	for i, q := range queries {
		if q == "" {
			assert.False(t, results[i].Matched)
			continue
		}
		assert.True(t, results[i].Matched)
		assert.InDelta(t, float64(len(q)), results[i].Latitude, 0.0001, "query %q", q)
	}
}

func TestCascade_BatchIndividualFailure(t *testing.T) {
	p := &queryEchoProvider{failOn: "BB, India"}
	c := NewCascadeClient([]Provider{p})

	results, err := c.BatchGeocode(context.Background(), []string{"A, India", "BB, India"})
	require.NoError(t, err)
	assert.True(t, results[0].Matched)
	assert.False(t, results[1].Matched)
	assert.Equal(t, "cascade", results[1].Source)
}

func TestCascade_BatchEmpty(t *testing.T) {
	c := NewCascadeClient(nil)
	results, err := c.BatchGeocode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

// queryEchoProvider encodes the query length as the latitude.
type queryEchoProvider struct {
	failOn string
}

func (p *queryEchoProvider) Name() string    { return "echo" }
func (p *queryEchoProvider) Available() bool { return true }
func (p *queryEchoProvider) Geocode(_ context.Context, query string) (*Result, error) {
	if query == p.failOn {
		return nil, errors.New("echo failure")
	}
	return matched("echo", float64(len(query)), 0), nil
}
