package geocode

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pool is the subset of *pgxpool.Pool used by PostgresCache.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const postgresCacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	quality    TEXT NOT NULL DEFAULT '',
	matched    BOOLEAN NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache(cached_at);
`

// PostgresCache is a Cache backed by a shared Postgres table.
type PostgresCache struct {
	pool Pool
	ttl  time.Duration

	nowFunc func() time.Time
}

// NewPostgresCache creates a PostgresCache. ttl <= 0 keeps entries forever.
func NewPostgresCache(pool Pool, ttl time.Duration) *PostgresCache {
	return &PostgresCache{pool: pool, ttl: ttl, nowFunc: time.Now}
}

// Migrate creates the cache table.
func (c *PostgresCache) Migrate(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, postgresCacheMigration)
	return eris.Wrap(err, "postgres cache: migrate")
}

// Get implements Cache.
func (c *PostgresCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	query := "SELECT latitude, longitude, quality, matched, source FROM geocode_cache WHERE query_hash = $1"
	args := []any{key}
	if c.ttl > 0 {
		query += " AND cached_at > $2"
		args = append(args, c.nowFunc().Add(-c.ttl))
	}

	var r Result
	err := c.pool.QueryRow(ctx, query, args...).Scan(&r.Latitude, &r.Longitude, &r.Quality, &r.Matched, &r.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres cache: get")
	}

	keyPrefix := key
	if len(keyPrefix) > 12 {
		keyPrefix = keyPrefix[:12]
	}
	zap.L().Debug("geocode cache hit", zap.String("key", keyPrefix), zap.Bool("matched", r.Matched))
	return &r, true, nil
}

// Set implements Cache.
func (c *PostgresCache) Set(ctx context.Context, key string, r *Result) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO geocode_cache (query_hash, latitude, longitude, quality, matched, source, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (query_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			quality = EXCLUDED.quality,
			matched = EXCLUDED.matched,
			source = EXCLUDED.source,
			cached_at = now()`,
		key, r.Latitude, r.Longitude, r.Quality, r.Matched, r.Source,
	)
	return eris.Wrap(err, "postgres cache: set")
}
