package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisCmdable is the subset of *redis.Client used by RedisCache.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache is a Cache backed by Redis. Entries expire after ttl.
type RedisCache struct {
	client RedisCmdable
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a RedisCache. ttl <= 0 keeps entries forever.
func NewRedisCache(client RedisCmdable, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "salesdash:geocode:"}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "redis cache: get")
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, eris.Wrap(err, "redis cache: decode")
	}
	return &r, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, r *Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "redis cache: encode")
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "redis cache: set")
	}
	return nil
}
