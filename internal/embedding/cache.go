package embedding

import (
	"strings"
	"sync"
	"time"
)

const defaultCacheSize = 100

type cacheEntry struct {
	vector   []float32
	storedAt time.Time
}

// queryCache is a process-wide TTL cache of query embeddings, keyed by
// lower-cased, trimmed text. Writes are idempotent replacements, so
// "most recent write wins" per key is the only ordering guarantee.
type queryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func newQueryCache(ttl time.Duration, maxSize int) *queryCache {
	return &queryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

func normalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func (c *queryCache) get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[normalizeKey(text)]
	if !ok || c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.vector, true
}

func (c *queryCache) put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[normalizeKey(text)] = cacheEntry{vector: vector, storedAt: c.now()}

	// Sweep expired entries once the cache grows past its bound.
	if len(c.entries) > c.maxSize {
		cutoff := c.now().Add(-c.ttl)
		for k, v := range c.entries {
			if v.storedAt.Before(cutoff) {
				delete(c.entries, k)
			}
		}
	}
}
