package geocode

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const sqliteCacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	quality    TEXT NOT NULL DEFAULT '',
	matched    INTEGER NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	cached_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache(cached_at);
`

// SQLiteCache is a Cache backed by a local SQLite file.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration

	nowFunc func() time.Time
}

// NewSQLiteCache opens a SQLite database at dsn in WAL mode. ttl <= 0 keeps
// entries forever.
func NewSQLiteCache(dsn string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite cache: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db, ttl: ttl, nowFunc: time.Now}, nil
}

// Migrate creates the cache table.
func (c *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, sqliteCacheMigration)
	return eris.Wrap(err, "sqlite cache: migrate")
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	query := "SELECT latitude, longitude, quality, matched, source FROM geocode_cache WHERE query_hash = ?"
	args := []any{key}
	if c.ttl > 0 {
		query += " AND cached_at > ?"
		args = append(args, c.nowFunc().Add(-c.ttl).Unix())
	}

	var r Result
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&r.Latitude, &r.Longitude, &r.Quality, &r.Matched, &r.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite cache: get")
	}
	return &r, true, nil
}

// Set implements Cache.
func (c *SQLiteCache) Set(ctx context.Context, key string, r *Result) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (query_hash, latitude, longitude, quality, matched, source, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (query_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			quality = excluded.quality,
			matched = excluded.matched,
			source = excluded.source,
			cached_at = excluded.cached_at`,
		key, r.Latitude, r.Longitude, r.Quality, r.Matched, r.Source, c.nowFunc().Unix(),
	)
	return eris.Wrap(err, "sqlite cache: set")
}
