// Package cache provides in-memory caches shared by the AI plugins.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is used when a non-positive capacity is given.
const DefaultCapacity = 1000

// EvictReason tells an eviction callback why an entry left the cache.
type EvictReason int

const (
	EvictCapacity EvictReason = iota // pushed out by a newer entry
	EvictExpired                     // idle longer than the TTL
	EvictRemoved                     // removed explicitly
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExpired:
		return "expired"
	case EvictRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithEvictCallback registers fn to run after an entry is evicted.
// fn is called without the cache lock held.
func WithEvictCallback[K comparable, V any](fn func(key K, value V, reason EvictReason)) Option[K, V] {
	return func(c *LRU[K, V]) { c.onEvict = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRU[K, V]) { c.now = now }
}

// LRU is a capacity-bounded cache with idle expiry.
// Get refreshes both the recency and the expiry of an entry.
// A non-positive TTL disables expiry.
type LRU[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	onEvict  func(K, V, EvictReason)
	now      func() time.Time

	mu    sync.Mutex
	items map[K]*list.Element
	order *list.List // front is most recently used
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

type eviction[K comparable, V any] struct {
	key    K
	value  V
	reason EvictReason
}

// NewLRU creates a new LRU cache.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration, opts ...Option[K, V]) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	now := c.now()
	if c.expired(e, now) {
		c.removeElement(el)
		c.mu.Unlock()
		c.notify([]eviction[K, V]{{e.key, e.value, EvictExpired}})
		return zero, false
	}
	c.touch(e, now)
	c.order.MoveToFront(el)
	c.mu.Unlock()
	return e.value, true
}

// Peek returns the value for key without refreshing it.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.expired(e, c.now()) {
		return zero, false
	}
	return e.value, true
}

// Add stores value only if key is absent or expired and reports whether it did.
func (c *LRU[K, V]) Add(key K, value V) bool {
	c.mu.Lock()
	now := c.now()

	var evicted []eviction[K, V]
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		if !c.expired(e, now) {
			c.mu.Unlock()
			return false
		}
		c.removeElement(el)
		evicted = append(evicted, eviction[K, V]{e.key, e.value, EvictExpired})
	}

	for len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		e := oldest.Value.(*entry[K, V])
		reason := EvictCapacity
		if c.expired(e, now) {
			reason = EvictExpired
		}
		c.removeElement(oldest)
		evicted = append(evicted, eviction[K, V]{e.key, e.value, reason})
	}

	e := &entry[K, V]{key: key, value: value}
	c.touch(e, now)
	c.items[key] = c.order.PushFront(e)
	c.mu.Unlock()

	c.notify(evicted)
	return true
}

// Remove deletes key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	e := el.Value.(*entry[K, V])
	c.removeElement(el)
	c.mu.Unlock()

	c.notify([]eviction[K, V]{{e.key, e.value, EvictRemoved}})
	return true
}

// Len returns the number of entries, expired ones included until cleaned up.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired removes all expired entries and returns how many were removed.
func (c *LRU[K, V]) CleanupExpired() int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	now := c.now()
	var evicted []eviction[K, V]
	// Expiry follows recency, so stop at the first live entry from the back.
	for el := c.order.Back(); el != nil; {
		e := el.Value.(*entry[K, V])
		if !c.expired(e, now) {
			break
		}
		prev := el.Prev()
		c.removeElement(el)
		evicted = append(evicted, eviction[K, V]{e.key, e.value, EvictExpired})
		el = prev
	}
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

func (c *LRU[K, V]) touch(e *entry[K, V], now time.Time) {
	if c.ttl > 0 {
		e.expiresAt = now.Add(c.ttl)
	}
}

func (c *LRU[K, V]) expired(e *entry[K, V], now time.Time) bool {
	return c.ttl > 0 && now.After(e.expiresAt)
}

// removeElement must be called with the lock held.
func (c *LRU[K, V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}

func (c *LRU[K, V]) notify(evicted []eviction[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, ev := range evicted {
		c.onEvict(ev.key, ev.value, ev.reason)
	}
}
