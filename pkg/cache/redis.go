package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulseboard/server/pkg/obs"
)

// RedisCache externalizes the transient cache for multi-instance
// deployments, where a process-local map would neither survive restarts
// nor dedupe across replicas. Expiry is delegated to Redis TTLs.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "fetch:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		obs.CacheMisses.Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	obs.CacheHits.Inc()
	return json.RawMessage(val), true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, payload json.RawMessage) error {
	return c.rdb.Set(ctx, c.prefix+key, []byte(payload), c.ttl).Err()
}
