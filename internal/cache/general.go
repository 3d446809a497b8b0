package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultGeneralSize = 500
	defaultGeneralTTL  = 30 * time.Minute
)

// GeneralCache is a TTL cache for arbitrary values. Expired entries are dropped on read and by
// Sweep; when full, expired entries go first and then the least recently used one.
type GeneralCache struct {
	lru  *expirable.LRU[string, any]
	size int
}

// NewGeneralCache creates a cache of at most size entries living for ttl.
func NewGeneralCache(size int, ttl time.Duration) *GeneralCache {
	if size <= 0 {
		size = defaultGeneralSize
	}
	if ttl <= 0 {
		ttl = defaultGeneralTTL
	}
	return &GeneralCache{
		lru:  expirable.NewLRU[string, any](size, nil, ttl),
		size: size,
	}
}

// Set stores value under key.
func (c *GeneralCache) Set(key string, value any) {
	if c.lru.Len() >= c.size && !c.lru.Contains(key) {
		c.Sweep()
	}
	c.lru.Add(key, value)
}

// Lookup returns the raw value for key.
func (c *GeneralCache) Lookup(key string) (any, bool) {
	return c.lru.Get(key)
}

// Remove drops key.
func (c *GeneralCache) Remove(key string) {
	c.lru.Remove(key)
}

// Len returns the number of stored entries, expired ones included until swept.
func (c *GeneralCache) Len() int {
	return c.lru.Len()
}

// Sweep removes expired entries and returns how many were dropped.
func (c *GeneralCache) Sweep() int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if _, ok := c.lru.Peek(key); !ok {
			if c.lru.Remove(key) {
				removed++
			}
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
func (c *GeneralCache) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				slog.Debug("general cache sweep", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Get returns the value under key as a T. A value of another type is treated as a miss
// and evicted.
func Get[T any](c *GeneralCache, key string) (T, bool) {
	var zero T
	raw, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		slog.Warn("cache entry has unexpected type, evicting", "key", key)
		c.lru.Remove(key)
		return zero, false
	}
	return value, true
}
