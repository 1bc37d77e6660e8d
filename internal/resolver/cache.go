package resolver

import (
	"sync"
	"time"
)

// cacheEntry stores resolved content until its TTL expires.
type cacheEntry struct {
	content   string
	expiresAt time.Time
}

// Cache is a TTL cache of resolved content keyed by absolute path. Entries
// are served until expiry or explicit invalidation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration

	// now is injectable for deterministic expiry tests.
	now func() time.Time
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached content for path, if present and unexpired.
func (c *Cache) Get(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[path]
	if !ok || c.now().After(entry.expiresAt) {
		return "", false
	}
	return entry.content, true
}

// Put caches content for path with a fresh TTL.
func (c *Cache) Put(path, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{
		content:   content,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
