// Package cache provides a TTL cache with de-duplicated rebuilds. Concurrent
// misses on the same key collapse into a single fill call; all waiters get
// the same result.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/yegors/vatsim-board/pkg/logger"
)

// FillFunc rebuilds the value for a key on a cache miss
type FillFunc[V any] func(ctx context.Context) (V, error)

// Cache is a TTL cache keyed by string. A read past TTL is a miss.
type Cache[V any] struct {
	lru    *expirable.LRU[string, V]
	group  singleflight.Group
	logger *logger.Logger
}

// New creates a cache holding at most size entries, each expiring after ttl
func New[V any](size int, ttl time.Duration, log *logger.Logger) *Cache[V] {
	return &Cache[V]{
		lru:    expirable.NewLRU[string, V](size, nil, ttl),
		logger: log.Named("cache"),
	}
}

// Get returns the cached value for key, or false if absent or expired
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set stores a value for key with the cache's TTL
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

// Remove evicts key from the cache
func (c *Cache[V]) Remove(key string) {
	c.lru.Remove(key)
}

// Purge drops all entries
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// GetOrFill returns the cached value for key, rebuilding it with fill on a
// miss. Concurrent callers missing on the same key share one fill call. A
// failed fill is not cached, so the next caller retries.
func (c *Cache[V]) GetOrFill(ctx context.Context, key string, fill FillFunc[V]) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have filled it
		// between our miss and acquiring the flight.
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		v, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	if shared {
		c.logger.Debug("Cache fill shared between concurrent callers", logger.String("key", key))
	}
	return v.(V), nil
}
