// Package services provides the collaborators that traced paths call into:
// a TTL cache and a concurrent health checker.
package services

import (
	"sync"
	"time"
)

// DefaultTTL is how long cached values live unless configured otherwise.
const DefaultTTL = 5000 * time.Millisecond

// A Cache stores values by key.
type Cache interface {
	// Get returns the value of a key and whether it was found.
	Get(key string) (any, bool)

	// Put stores a value.
	Put(key string, value any)

	// Clear removes all the values.
	Clear()
}

// Clock tells the current time.
type Clock func() time.Time

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a Cache whose entries expire after a fixed time to live.
// Expired entries are dropped when they are read.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     Clock
	entries map[string]cacheEntry

	hits   uint64
	misses uint64
}

// NewTTLCache creates a TTLCache. A non-positive ttl uses DefaultTTL.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return NewTTLCacheWithClock(ttl, time.Now)
}

// NewTTLCacheWithClock creates a TTLCache that reads time from the clock.
func NewTTLCacheWithClock(ttl time.Duration, now Clock) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &TTLCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// TTL returns the time to live of the entries.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value of a key if it has not expired.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.misses++

		return nil, false
	}

	c.hits++

	return e.value, true
}

// Put stores a value, replacing the value and the expiry of an existing key.
func (c *TTLCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Clear removes all the entries.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len returns the number of stored entries, including expired entries that
// have not been read since they expired.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns the number of hits and misses so far.
func (c *TTLCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits, c.misses
}
