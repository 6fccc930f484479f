package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimGeocode_City(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Jaipur, India", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "salesdash-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{
			"lat": "26.9154576",
			"lon": "75.8189817",
			"category": "boundary",
			"type": "administrative",
			"addresstype": "city",
			"display_name": "Jaipur, Rajasthan, India"
		}]`)
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithBaseURL(srv.URL), WithUserAgent("salesdash-test"), WithRateLimit(1000))
	result, err := p.Geocode(context.Background(), "Jaipur, India")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 26.9154, result.Latitude, 0.001)
	assert.InDelta(t, 75.8189, result.Longitude, 0.001)
	assert.Equal(t, "nominatim", result.Source)
	assert.Equal(t, "centroid", result.Quality)
}

func TestNominatimGeocode_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithBaseURL(srv.URL), WithRateLimit(1000))
	result, err := p.Geocode(context.Background(), "UnknownVillageXYZ, India")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
}

func TestNominatimGeocode_BadCoordinate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat": "north", "lon": "75.8"}]`)
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := p.Geocode(context.Background(), "Jaipur, India")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse lat")
}

func TestNominatimGeocode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewNominatimProvider(WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := p.Geocode(context.Background(), "Jaipur, India")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestNominatimAvailable(t *testing.T) {
	assert.True(t, NewNominatimProvider().Available())
	assert.False(t, NewNominatimProvider(WithBaseURL("")).Available())
}

func TestNominatimTypeToQuality(t *testing.T) {
	assert.Equal(t, "rooftop", nominatimTypeToQuality(nominatimPlace{AddressType: "building"}))
	assert.Equal(t, "range", nominatimTypeToQuality(nominatimPlace{AddressType: "road"}))
	assert.Equal(t, "centroid", nominatimTypeToQuality(nominatimPlace{AddressType: "town"}))
	assert.Equal(t, "centroid", nominatimTypeToQuality(nominatimPlace{Category: "place", AddressType: "hamlet"}))
	assert.Equal(t, "approximate", nominatimTypeToQuality(nominatimPlace{Category: "amenity"}))
}
