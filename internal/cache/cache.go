// Package cache provides a process-local, concurrency-safe LRU cache with
// TTL expiration. It is injected wherever derived lookups are memoized.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// TTL is a concurrent-safe LRU cache whose entries expire after a fixed age.
type TTL[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*entry[V]
	order      []K // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	nowFunc    func() time.Time
	hits       atomic.Int64
	misses     atomic.Int64
}

type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	nowFunc func() time.Time
}

// WithClock overrides the time source used for expiration.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.nowFunc = now }
}

// New creates a cache holding at most maxEntries values for ttl each.
// maxEntries <= 0 means unbounded.
func New[K comparable, V any](maxEntries int, ttl time.Duration, opts ...Option) *TTL[K, V] {
	o := options{nowFunc: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return &TTL[K, V]{
		entries:    make(map[K]*entry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		nowFunc:    o.nowFunc,
	}
}

// Get returns the cached value for key. ok is false on miss or expiration.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	if c.nowFunc().Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return zero, false
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return e.value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (c *TTL[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = &entry[V]{value: value, createdAt: now}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for c.maxEntries > 0 && len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &entry[V]{value: value, createdAt: now}
	c.order = append(c.order, key)
}

// Delete removes key if present.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.removeFromOrder(key)
	}
}

// Len returns the number of stored entries, expired ones included until
// they are next touched.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache performance statistics.
func (c *TTL[K, V]) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *TTL[K, V]) removeFromOrder(key K) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
