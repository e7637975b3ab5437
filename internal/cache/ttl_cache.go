// Package cache provides thread-safe caching utilities with time-based
// expiration, and the search result cache built on them.
package cache

import (
	"sync"
	"time"
)

// TTLCache is a thread-safe, size-bounded cache whose entries expire a
// fixed duration after they were stored. When full, storing a new key
// evicts the oldest entry.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	data    map[K]entry[V]
	ttl     time.Duration
	maxSize int

	now func() time.Time
}

type entry[V any] struct {
	value  V
	stored time.Time
}

// New creates a TTLCache. A maxSize of zero means unbounded.
func New[K comparable, V any](ttl time.Duration, maxSize int) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data:    make(map[K]entry[V]),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the value for key when present and not expired. Expired
// entries are dropped on access.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expiredLocked(e) {
		delete(c.data, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value and starts its TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && c.maxSize > 0 && len(c.data) >= c.maxSize {
		c.pruneLocked()
		if len(c.data) >= c.maxSize {
			c.evictOldestLocked()
		}
	}
	c.data[key] = entry[V]{value: value, stored: c.now()}
}

// Invalidate clears all cached data.
func (c *TTLCache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]entry[V])
}

// Len returns the number of stored entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// expiredLocked MUST be called with the lock held.
func (c *TTLCache[K, V]) expiredLocked(e entry[V]) bool {
	return c.now().Sub(e.stored) >= c.ttl
}

func (c *TTLCache[K, V]) pruneLocked() {
	for k, e := range c.data {
		if c.expiredLocked(e) {
			delete(c.data, k)
		}
	}
}

func (c *TTLCache[K, V]) evictOldestLocked() {
	var (
		oldest K
		at     time.Time
		found  bool
	)
	for k, e := range c.data {
		if !found || e.stored.Before(at) {
			oldest, at, found = k, e.stored, true
		}
	}
	if found {
		delete(c.data, oldest)
	}
}
