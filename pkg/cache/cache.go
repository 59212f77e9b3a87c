// Package cache provides the transient response cache that absorbs
// duplicate upstream fetches. Entries live for a short TTL; correctness
// depends only on read-time expiry checks, so there is no sweeper.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pulseboard/server/pkg/obs"
)

// DefaultTTL matches the dashboard's refresh cadence.
const DefaultTTL = 5 * time.Minute

// Cache is a short-lived key/value store for upstream payloads. Keys
// combine the resource URL with a credential prefix so users never see
// each other's responses.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Put(ctx context.Context, key string, payload json.RawMessage) error
}

type entry struct {
	payload  json.RawMessage
	storedAt time.Time
}

// MemoryCache is the in-process implementation. Expired entries are
// evicted lazily on the next lookup.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		obs.CacheMisses.Inc()
		return nil, false, nil
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		obs.CacheMisses.Inc()
		return nil, false, nil
	}
	obs.CacheHits.Inc()
	return e.payload, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, payload json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{payload: payload, storedAt: c.now()}
	return nil
}
