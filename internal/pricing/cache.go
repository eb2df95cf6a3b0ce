// Package pricing resolves instrument prices in the settlement currency,
// consulting a short-lived cache before calling the external providers.
package pricing

import (
	"sync"
	"time"
)

// Clock returns the current time. Injected so tests can control expiry.
type Clock func() time.Time

// Cache is a mutex-guarded in-memory price cache with a fixed TTL.
// The handlers run concurrently, so unlike a single-threaded deployment the
// lock is not optional.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     Clock
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     float64
	fetchedAt time.Time
}

// NewCache creates a cache with the given TTL. A nil clock uses time.Now.
func NewCache(ttl time.Duration, now Clock) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value for key if it is still fresh.
func (c *Cache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		return 0, false
	}
	return entry.value, true
}

// Put stores value under key, stamped with the current time.
func (c *Cache) Put(key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, fetchedAt: c.now()}
}

// Evict removes expired entries and returns how many were dropped.
func (c *Cache) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.fetchedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
