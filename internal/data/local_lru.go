package data

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// LocalLRU is a small in-memory LRU cache with per-entry TTL. It is the
// first tier of the content-info cache. Methods are safe for concurrent use.
type LocalLRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element
	now      func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
	evicts atomic.Uint64
}

type lruEntry[V any] struct {
	key    string
	value  V
	expiry time.Time // zero means no expiry
}

// LocalLRUConfig groups constructor options.
type LocalLRUConfig struct {
	Capacity int
	Now      func() time.Time
}

const defaultLRUCapacity = 512

// NewLocalLRU creates a new LocalLRU with the given config.
func NewLocalLRU[V any](cfg LocalLRUConfig) *LocalLRU[V] {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultLRUCapacity
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &LocalLRU[V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      nowFn,
	}
}

// Get returns the value for key if present and not expired.
func (c *LocalLRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, found := c.items[key]
	if !found {
		c.misses.Add(1)
		return zero, false
	}
	ent := el.Value.(*lruEntry[V])
	if !ent.expiry.IsZero() && c.now().After(ent.expiry) {
		c.remove(el)
		c.misses.Add(1)
		return zero, false
	}
	c.ll.MoveToFront(el)
	c.hits.Add(1)
	return ent.value, true
}

// Set inserts or updates a value. ttl <= 0 means no expiration.
func (c *LocalLRU[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}

	if el, found := c.items[key]; found {
		ent := el.Value.(*lruEntry[V])
		ent.value = value
		ent.expiry = exp
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&lruEntry[V]{key: key, value: value, expiry: exp})
	for c.ll.Len() > c.capacity {
		c.remove(c.ll.Back())
		c.evicts.Add(1)
	}
}

// Delete removes a key from the cache.
func (c *LocalLRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
		return true
	}
	return false
}

// Len returns the current number of items in the cache.
func (c *LocalLRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// LocalLRUStats are simple counters for observability.
type LocalLRUStats struct {
	Hits, Misses, Evictions uint64
	Size, Capacity          int
}

// Stats returns a snapshot of counters and sizes.
func (c *LocalLRU[V]) Stats() LocalLRUStats {
	return LocalLRUStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicts.Load(),
		Size:      c.Len(),
		Capacity:  c.capacity,
	}
}

// remove unlinks el; caller holds c.mu.
func (c *LocalLRU[V]) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*lruEntry[V]).key)
}
