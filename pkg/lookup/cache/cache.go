// Package cache provides a bounded TTL cache with LRU eviction, used by
// the user-lookup set to cache token resolutions and user existence checks.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Metrics receives cache events. A nil Metrics is valid and adds no
// overhead; see pkg/metrics for the Prometheus implementation.
type Metrics interface {
	Hit()
	Miss()
	Eviction()
}

// entry is one cached value with its expiry instant.
type entry[K comparable, V any] struct {
	key     K
	value   V
	expires time.Time
}

// TTLCache is a thread-safe cache bounded by entry count. Entries expire
// at their per-entry TTL; when the cache is full the least recently used
// entry is evicted. Expired entries are dropped lazily on Get.
//
// The clock is injectable so tests can advance time without sleeping.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	clock   func() time.Time
	order   *list.List // front = most recently used
	entries map[K]*list.Element
	metrics Metrics
}

// New creates a cache holding at most maxSize entries. A nil clock uses
// time.Now; a nil metrics disables instrumentation.
func New[K comparable, V any](maxSize int, clock func() time.Time, metrics Metrics) *TTLCache[K, V] {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache[K, V]{
		maxSize: maxSize,
		clock:   clock,
		order:   list.New(),
		entries: make(map[K]*list.Element),
		metrics: metrics,
	}
}

// Get returns the value for key if present and unexpired, marking it most
// recently used. An expired entry is removed and reported as a miss.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.miss()
		return zero, false
	}
	ent := elem.Value.(*entry[K, V])
	if !c.clock().Before(ent.expires) {
		c.order.Remove(elem)
		delete(c.entries, key)
		c.miss()
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.hit()
	return ent.value, true
}

// Put inserts or replaces the value for key with the given lifetime.
// A non-positive ttl is ignored. Inserting into a full cache evicts the
// least recently used entry.
func (c *TTLCache[K, V]) Put(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock().Add(ttl)
	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expires = expires
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expires: expires})
}

// Remove drops the entry for key if present.
func (c *TTLCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
}

// Len returns the number of entries, including any not yet dropped
// expired entries.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// evictOldest removes the least recently used entry. Caller holds c.mu.
func (c *TTLCache[K, V]) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	ent := elem.Value.(*entry[K, V])
	c.order.Remove(elem)
	delete(c.entries, ent.key)
	if c.metrics != nil {
		c.metrics.Eviction()
	}
}

func (c *TTLCache[K, V]) hit() {
	if c.metrics != nil {
		c.metrics.Hit()
	}
}

func (c *TTLCache[K, V]) miss() {
	if c.metrics != nil {
		c.metrics.Miss()
	}
}
