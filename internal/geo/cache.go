package geo

import (
	"sync"
	"time"
)

// ttlCache is a small mutex-guarded cache with per-entry expiry. Entries are
// evicted lazily on lookup, not by a background sweep. The entry cap keeps
// memory bounded under adversarial query streams; when full, the stalest
// entry is dropped.
type ttlCache[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

func newTTLCache[V any](ttl time.Duration, maxEntries int) *ttlCache[V] {
	return &ttlCache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]cacheEntry[V]),
	}
}

func (c *ttlCache[V]) get(key string, now time.Time) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	if now.Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}

	return entry.value, true
}

func (c *ttlCache[V]) put(key string, value V, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictStalest(now)
	}

	c.entries[key] = cacheEntry[V]{value: value, storedAt: now}
}

// evictStalest removes expired entries first, then the oldest entry if the
// cache is still full. Caller must hold the mutex.
func (c *ttlCache[V]) evictStalest(now time.Time) {
	var oldestKey string
	var oldestAt time.Time
	first := true

	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) >= c.ttl {
			delete(c.entries, key)
			continue
		}
		if first || entry.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, first = key, entry.storedAt, false
		}
	}

	if len(c.entries) >= c.maxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *ttlCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
