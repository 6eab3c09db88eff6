// Package cache provides a small sharded LRU cache used to memoize
// compute results (e.g. optimized geometry keyed by content hash).
package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Default configuration constants.
const (
	// shardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	shardCount = 8

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 128

	shardMask = shardCount - 1
)

// Hasher computes a hash for a key, used for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Uint64Hasher returns the key itself as the hash. Use it when keys are
// already content hashes (e.g. xxh3 digests) with good bit dispersion.
func Uint64Hasher(u uint64) uint64 { return u }

// Stats holds cache counters. Snapshots are approximate under concurrent
// load; they are for diagnostics, not correctness.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a thread-safe, sharded LRU cache.
//
// Values are stored as-is (not copied); callers must not modify a value
// after caching it or after retrieving it.
type Cache[K comparable, V any] struct {
	shards   [shardCount]*shard[K, V]
	hasher   Hasher[K]
	capacity int // per shard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*list.Element
	order   *list.List // front = most recently used
}

// pair is the element payload in a shard's LRU list.
type pair[K comparable, V any] struct {
	key   K
	value V
}

// New creates a sharded cache with the given per-shard capacity.
// Total capacity is approximately capacity * 8. If capacity <= 0,
// DefaultCapacity is used.
func New[K comparable, V any](capacity int, hasher Hasher[K]) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[K, V]{hasher: hasher, capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{
			entries: make(map[K]*list.Element),
			order:   list.New(),
		}
	}
	return c
}

func (c *Cache[K, V]) shardFor(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value by key, marking it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	el, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.order.MoveToFront(el)
	value := el.Value.(*pair[K, V]).value
	s.mu.Unlock()

	c.hits.Add(1)
	return value, true
}

// Set stores a value, evicting the least recently used entries when the
// shard exceeds capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		el.Value.(*pair[K, V]).value = value
		s.order.MoveToFront(el)
		return
	}

	for s.order.Len() >= c.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*pair[K, V]).key)
		c.evictions.Add(1)
	}

	s.entries[key] = s.order.PushFront(&pair[K, V]{key: key, value: value})
}

// Len returns the total number of cached entries across all shards.
func (c *Cache[K, V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.order.Len()
		s.mu.Unlock()
	}
	return n
}

// Clear removes all entries. Counters are not reset.
func (c *Cache[K, V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[K]*list.Element)
		s.order.Init()
		s.mu.Unlock()
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
