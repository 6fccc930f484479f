package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salesdash/internal/config"
	"github.com/sells-group/salesdash/internal/fetcher"
	"github.com/sells-group/salesdash/internal/geomap"
	"github.com/sells-group/salesdash/internal/resilience"
	"github.com/sells-group/salesdash/pkg/dashapi"
	"github.com/sells-group/salesdash/pkg/geocode"
)

const publicNominatim = "https://nominatim.openstreetmap.org"

// newDashClient builds the data API client from cfg.API.
func newDashClient(c *config.Config) dashapi.Client {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: c.API.Timeout()})
	retry := resilience.DefaultRetryConfig()
	if c.API.RetryAttempts > 0 {
		retry.MaxAttempts = c.API.RetryAttempts
	}
	return dashapi.NewClient(c.API.FilterBaseURL, c.API.StoresBaseURL,
		dashapi.WithFetcher(f),
		dashapi.WithRetry(retry),
	)
}

// geoEnv bundles the geocoder with the resources it holds open.
type geoEnv struct {
	Geocoder *geocode.CascadeClient
	Breakers *resilience.Breakers
	closers  []func()
}

// Close releases the cache backend.
func (e *geoEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func geomapConfig(c *config.Config) geomap.Config {
	return geomap.Config{
		Country:  c.Geocode.Country,
		Fallback: &geomap.LatLng{Lat: c.Geocode.FallbackLat, Lng: c.Geocode.FallbackLng},
		TopN:     c.Geocode.TopN,
	}
}

func geocodeProviders(c *config.Config) []geocode.Provider {
	var providers []geocode.Provider
	if c.Geocode.GoogleAPIKey != "" {
		opts := []geocode.ProviderOption{}
		if c.Geocode.RateLimit > 0 {
			opts = append(opts, geocode.WithRateLimit(c.Geocode.RateLimit))
		}
		providers = append(providers, geocode.NewGoogleProvider(c.Geocode.GoogleAPIKey, opts...))
	}
	if !c.Geocode.DisableNominatim && c.Geocode.NominatimBaseURL != "" {
		opts := []geocode.ProviderOption{geocode.WithBaseURL(c.Geocode.NominatimBaseURL)}
		// Self-hosted instances are not bound by the public usage policy.
		if c.Geocode.NominatimBaseURL != publicNominatim && c.Geocode.RateLimit > 0 {
			opts = append(opts, geocode.WithRateLimit(c.Geocode.RateLimit))
		}
		providers = append(providers, geocode.NewNominatimProvider(opts...))
	}
	return providers
}

// initGeocoder builds the provider cascade with breakers and the configured
// cache.
func initGeocoder(ctx context.Context, c *config.Config) (*geoEnv, error) {
	env := &geoEnv{
		Breakers: resilience.NewBreakers(resilience.CircuitBreakerConfig{
			FailureThreshold: c.Geocode.BreakerThreshold,
			ResetTimeout:     time.Duration(c.Geocode.BreakerResetSecs) * time.Second,
		}),
	}

	opts := []geocode.CascadeOption{
		geocode.WithBreakers(env.Breakers),
		geocode.WithBatchConcurrency(c.Geocode.Concurrency),
	}

	cache, closeCache, err := initCache(ctx, c.Cache, true)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		opts = append(opts, geocode.WithCache(cache))
		env.closers = append(env.closers, closeCache)
	}

	providers := geocodeProviders(c)
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	zap.L().Debug("geocoder ready",
		zap.Strings("providers", names),
		zap.String("cache", c.Cache.Driver),
	)

	env.Geocoder = geocode.NewCascadeClient(providers, opts...)
	return env, nil
}

// initCache opens the geocode cache backend. A nil cache means caching is
// disabled. When migrate is set, SQLite caches create their table.
func initCache(ctx context.Context, c config.CacheConfig, migrate bool) (geocode.Cache, func(), error) {
	ttl := time.Duration(c.TTLDays) * 24 * time.Hour
	noop := func() {}

	switch c.Driver {
	case "", "none":
		return nil, noop, nil
	case "sqlite":
		dsn := c.DSN
		if dsn == "" {
			dsn = "salesdash.db"
		}
		sc, err := geocode.NewSQLiteCache(dsn, ttl)
		if err != nil {
			return nil, noop, err
		}
		if migrate {
			if err := sc.Migrate(ctx); err != nil {
				_ = sc.Close()
				return nil, noop, err
			}
		}
		return sc, func() { _ = sc.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DSN)
		if err != nil {
			return nil, noop, eris.Wrap(err, "postgres cache: connect")
		}
		return geocode.NewPostgresCache(pool, ttl), pool.Close, nil
	case "redis":
		opt, err := redis.ParseURL(c.DSN)
		if err != nil {
			return nil, noop, eris.Wrap(err, "redis cache: parse url")
		}
		client := redis.NewClient(opt)
		return geocode.NewRedisCache(client, ttl), func() { _ = client.Close() }, nil
	default:
		return nil, noop, eris.Errorf("unsupported cache driver: %s", c.Driver)
	}
}
