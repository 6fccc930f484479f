// Package geocode resolves free-text place names ("Pune, India") to
// coordinates via Google Geocoding (when a key is configured) and
// OpenStreetMap Nominatim, with an optional result cache.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes place queries.
type Client interface {
	// Geocode resolves a single query. An unmatched query is not an error:
	// it returns a Result with Matched=false.
	Geocode(ctx context.Context, query string) (*Result, error)

	// BatchGeocode resolves queries concurrently. Results are index-aligned
	// with queries.
	BatchGeocode(ctx context.Context, queries []string) ([]Result, error)

	// Available reports whether at least one backend can serve requests.
	Available() bool
}

// Result holds the geocoding output for a query.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source"`  // "google", "nominatim" or "cascade"
	Quality   string  `json:"quality"` // "rooftop", "range", "centroid", "approximate"
	Matched   bool    `json:"matched"`
}

// ProviderOption configures an HTTP-backed provider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	userAgent  string
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ProviderOption {
	return func(c *providerConfig) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) ProviderOption {
	return func(c *providerConfig) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) ProviderOption {
	return func(c *providerConfig) {
		c.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) ProviderOption {
	return func(c *providerConfig) {
		c.userAgent = ua
	}
}

func newProviderConfig(baseURL string, rps float64, opts []ProviderOption) *providerConfig {
	c := &providerConfig{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		userAgent:  "salesdash/1.0",
	}
	WithRateLimit(rps)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}
