package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salesdash/internal/config"
	"github.com/sells-group/salesdash/internal/geomap"
	"github.com/sells-group/salesdash/pkg/geocode"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.API.FilterBaseURL = "http://127.0.0.1:5002"
	c.API.StoresBaseURL = "http://localhost:5008"
	c.API.TimeoutSecs = 5
	c.API.RetryAttempts = 2
	c.Geocode.NominatimBaseURL = publicNominatim
	c.Geocode.Country = "India"
	c.Geocode.FallbackLat = 20.5937
	c.Geocode.FallbackLng = 78.9629
	c.Geocode.Concurrency = 4
	c.Geocode.TopN = 5
	c.Geocode.RateLimit = 10
	c.Cache.Driver = "none"
	return c
}

func providerNames(ps []geocode.Provider) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func TestGeocodeProviders(t *testing.T) {
	c := testConfig()
	assert.Equal(t, []string{"nominatim"}, providerNames(geocodeProviders(c)))

	c.Geocode.GoogleAPIKey = "key"
	assert.Equal(t, []string{"google", "nominatim"}, providerNames(geocodeProviders(c)))

	c.Geocode.DisableNominatim = true
	assert.Equal(t, []string{"google"}, providerNames(geocodeProviders(c)))
}

func TestGeomapConfig(t *testing.T) {
	gc := geomapConfig(testConfig())
	assert.Equal(t, "India", gc.Country)
	assert.Equal(t, 5, gc.TopN)
	require.NotNil(t, gc.Fallback)
	assert.InDelta(t, 20.5937, gc.Fallback.Lat, 1e-9)

	c := testConfig()
	c.Geocode.FallbackLat, c.Geocode.FallbackLng = 0, 0
	gc = geomapConfig(c)
	require.NotNil(t, gc.Fallback)
	assert.Equal(t, geomap.LatLng{}, *gc.Fallback)
}

func TestInitCache_None(t *testing.T) {
	cache, closeCache, err := initCache(context.Background(), config.CacheConfig{Driver: "none"}, true)
	require.NoError(t, err)
	assert.Nil(t, cache)
	closeCache()
}

func TestInitCache_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cache.db")
	cache, closeCache, err := initCache(context.Background(), config.CacheConfig{Driver: "sqlite", DSN: dsn, TTLDays: 1}, true)
	require.NoError(t, err)
	defer closeCache()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", &geocode.Result{Latitude: 1, Longitude: 2, Matched: true, Source: "google"}))
	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2, got.Longitude, 1e-9)
}

func TestInitCache_RedisBadURL(t *testing.T) {
	_, _, err := initCache(context.Background(), config.CacheConfig{Driver: "redis", DSN: "not a url"}, false)
	assert.ErrorContains(t, err, "redis cache: parse url")
}

func TestInitCache_Unknown(t *testing.T) {
	_, _, err := initCache(context.Background(), config.CacheConfig{Driver: "memcached"}, false)
	assert.ErrorContains(t, err, "unsupported cache driver")
}

func TestInitGeocoder(t *testing.T) {
	env, err := initGeocoder(context.Background(), testConfig())
	require.NoError(t, err)
	defer env.Close()

	assert.True(t, env.Geocoder.Available())
	assert.NotNil(t, env.Breakers)
}

func TestInitGeocoder_NoProviders(t *testing.T) {
	c := testConfig()
	c.Geocode.DisableNominatim = true

	env, err := initGeocoder(context.Background(), c)
	require.NoError(t, err)
	defer env.Close()
	assert.False(t, env.Geocoder.Available())
}
