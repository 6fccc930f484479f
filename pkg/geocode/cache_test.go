package geocode

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Deterministic(t *testing.T) {
	key1 := cacheKey("Pune, India")
	key2 := cacheKey("Pune, India")
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 64) // SHA-256 hex is 64 chars
}

func TestCacheKey_CaseAndSpaceInsensitive(t *testing.T) {
	assert.Equal(t, cacheKey("New Delhi, India"), cacheKey("  NEW   delhi,  india "))
}

func TestCacheKey_DifferentQueries(t *testing.T) {
	assert.NotEqual(t, cacheKey("Pune, India"), cacheKey("Patna, India"))
}

func newTestSQLiteCache(t *testing.T, ttl time.Duration) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Migrate(context.Background()))
	return c
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, 0)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k1", matched("nominatim", 18.52, 73.85)))
	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Matched)
	assert.Equal(t, "nominatim", got.Source)
	assert.Equal(t, "centroid", got.Quality)
	assert.InDelta(t, 73.85, got.Longitude, 0.0001)
}

func TestSQLiteCache_NegativeAndOverwrite(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, 0)

	require.NoError(t, c.Set(ctx, "k1", &Result{Matched: false, Source: "cascade"}))
	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Matched)

	require.NoError(t, c.Set(ctx, "k1", matched("google", 1, 2)))
	got, ok, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Matched)
	assert.Equal(t, "google", got.Source)
}

func TestSQLiteCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, 24*time.Hour)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return base }
	require.NoError(t, c.Set(ctx, "k1", matched("google", 1, 2)))

	c.nowFunc = func() time.Time { return base.Add(time.Hour) }
	_, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	c.nowFunc = func() time.Time { return base.Add(48 * time.Hour) }
	_, ok, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresCache_Hit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT latitude, longitude, quality, matched, source FROM geocode_cache`).
		WithArgs("abc123", pgxmock.AnyArg()).
		WillReturnRows(
			pgxmock.NewRows([]string{"latitude", "longitude", "quality", "matched", "source"}).
				AddRow(22.57, 88.36, "centroid", true, "google"),
		)

	c := NewPostgresCache(mock, 90*24*time.Hour)
	result, ok, err := c.Get(context.Background(), "abc123")

	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, result.Matched)
	assert.Equal(t, "google", result.Source)
	assert.InDelta(t, 22.57, result.Latitude, 0.01)
	assert.InDelta(t, 88.36, result.Longitude, 0.01)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Miss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT latitude, longitude, quality, matched, source FROM geocode_cache`).
		WithArgs("missing-key").
		WillReturnError(pgx.ErrNoRows)

	c := NewPostgresCache(mock, 0)
	result, ok, err := c.Get(context.Background(), "missing-key")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, result)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT latitude, longitude, quality, matched, source FROM geocode_cache`).
		WithArgs("k").
		WillReturnError(assert.AnError)

	c := NewPostgresCache(mock, 0)
	_, ok, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Set(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO geocode_cache`).
		WithArgs("hashkey", 22.57, 88.36, "centroid", true, "google").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c := NewPostgresCache(mock, 0)
	err = c.Set(context.Background(), "hashkey", matched("google", 22.57, 88.36))

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS geocode_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, NewPostgresCache(mock, 0).Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

// fakeRedis implements RedisCmdable over a map.
type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := value.([]byte)
	f.data[key] = string(b)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := NewRedisCache(fake, 90*24*time.Hour)

	_, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k1", matched("nominatim", 13.08, 80.27)))
	assert.Equal(t, 90*24*time.Hour, fake.ttls["salesdash:geocode:k1"])

	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Matched)
	assert.InDelta(t, 13.08, got.Latitude, 0.0001)
}

func TestRedisCache_GetError(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = errors.New("connection refused")
	c := NewRedisCache(fake, 0)

	_, ok, err := c.Get(context.Background(), "k1")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "redis cache: get")
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	fake := newFakeRedis()
	fake.data["salesdash:geocode:k1"] = "{not json"
	c := NewRedisCache(fake, 0)

	_, _, err := c.Get(context.Background(), "k1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis cache: decode")
}
