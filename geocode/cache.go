package geocode

import (
	"sync"
	"time"
)

// Cache is the place-result cache contract. Entries expire lazily on lookup;
// SweepExpired exists so a background tick can bound memory growth across
// distinct place strings. Encapsulated behind this interface so the
// single-process map can later be swapped for a shared external cache
// without touching call sites.
type Cache interface {
	Get(key string, now time.Time) (*Result, bool)
	Set(key string, value *Result, expiresAt time.Time)
	SweepExpired(now time.Time) int
}

type cacheEntry struct {
	value     *Result
	expiresAt time.Time
}

// MemoryCache is the process-local Cache. Guarded by an explicit mutex:
// requests are served from multiple goroutines. Single-process only — a
// known horizontal-scaling limitation, documented rather than hidden.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// Get returns a cached value if present and not expired. Expired entries are
// deleted lazily here.
func (c *MemoryCache) Get(key string, now time.Time) (*Result, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value with its absolute expiry.
func (c *MemoryCache) Set(key string, value *Result, expiresAt time.Time) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// SweepExpired removes all expired entries and returns how many were dropped.
func (c *MemoryCache) SweepExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped int
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
