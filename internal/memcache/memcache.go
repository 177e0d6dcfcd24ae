// Package memcache provides a small thread-safe cache whose entries expire
// after a fixed TTL. Expiry happens lazily on read; Scrub removes every
// expired entry eagerly. There is no pressure-based eviction.
package memcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[K]entry[V]
	now     func() time.Time
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:     ttl,
		entries: make(map[K]entry[V]),
		now:     time.Now,
	}
}

func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Get returns the cached value, expiring it first if it is older than the TTL.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.expiredLocked(e) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Scrub removes all expired entries and reports whether any were removed.
func (c *Cache[K, V]) Scrub() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	for key, e := range c.entries {
		if c.expiredLocked(e) {
			delete(c.entries, key)
			removed = true
		}
	}
	return removed
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[K, V]) expiredLocked(e entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl
}
