package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/salesdash/internal/resilience"
)

// ErrNoProvider is returned when no configured provider is available.
var ErrNoProvider = eris.New("geocode: no provider available")

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
	Available() bool
}

// CascadeClient tries geocode providers in order until one matches. Each
// provider runs behind its own circuit breaker.
type CascadeClient struct {
	providers        []Provider
	breakers         *resilience.Breakers
	cache            Cache
	batchConcurrency int
}

// CascadeOption configures the CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCache enables result caching.
func WithCache(c Cache) CascadeOption {
	return func(cc *CascadeClient) {
		cc.cache = c
	}
}

// WithBreakers sets the circuit breaker registry. Providers are keyed by name.
func WithBreakers(b *resilience.Breakers) CascadeOption {
	return func(cc *CascadeClient) {
		if b != nil {
			cc.breakers = b
		}
	}
}

// WithBatchConcurrency sets the max parallel calls for BatchGeocode.
func WithBatchConcurrency(n int) CascadeOption {
	return func(cc *CascadeClient) {
		if n > 0 {
			cc.batchConcurrency = n
		}
	}
}

// NewCascadeClient creates a CascadeClient that tries providers in order.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{
		providers:        providers,
		breakers:         resilience.NewBreakers(resilience.DefaultCircuitBreakerConfig()),
		batchConcurrency: 10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available implements Client.
func (c *CascadeClient) Available() bool {
	for _, p := range c.providers {
		if p.Available() {
			return true
		}
	}
	return false
}

// Geocode implements Client. A miss is cached only when every available
// provider answered without error. If every attempted provider failed, the
// last error is returned.
func (c *CascadeClient) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Matched: false, Source: "cascade"}, nil
	}

	key := cacheKey(query)
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			zap.L().Debug("cascade: cache get failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	var (
		lastErr  error
		answered bool
		tried    bool
	)
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		tried = true

		result, err := resilience.ExecuteVal(ctx, c.breakers.Get(p.Name()), func(ctx context.Context) (*Result, error) {
			return p.Geocode(ctx, query)
		})
		if err != nil {
			zap.L().Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if result == nil {
			continue
		}
		answered = true
		if result.Matched {
			c.store(ctx, key, result)
			return result, nil
		}
	}

	if !tried {
		return nil, ErrNoProvider
	}
	if !answered && lastErr != nil {
		return nil, eris.Wrapf(lastErr, "geocode: all providers failed for %q", query)
	}

	noMatch := &Result{Matched: false, Source: "cascade"}
	if lastErr == nil {
		c.store(ctx, key, noMatch)
	}
	return noMatch, nil
}

func (c *CascadeClient) store(ctx context.Context, key string, r *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, r); err != nil {
		zap.L().Debug("cascade: cache set failed", zap.Error(err))
	}
}

// BatchGeocode implements Client by geocoding queries in parallel.
// Individual failures become unmatched results.
func (c *CascadeClient) BatchGeocode(ctx context.Context, queries []string) ([]Result, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if !c.Available() {
		return nil, ErrNoProvider
	}

	results := make([]Result, len(queries))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchConcurrency)

	for i, q := range queries {
		eg.Go(func() error {
			r, gcErr := c.Geocode(gCtx, q)
			if gcErr != nil || r == nil {
				results[i] = Result{Matched: false, Source: "cascade"}
				return nil //nolint:nilerr // individual geocode failures don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	return results, ctx.Err()
}
