// Package lrucache provides the two bounded in-memory cache shapes stores
// are built on (spec.md §4.1): a single-value cache (key -> value) and a
// set-valued cache (key -> set of T) whose eviction picks a random victim
// when full, since it bounds cardinality rather than total element count.
package lrucache

import (
	"math/rand"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is a bounded key -> value cache, falling through to disk on a
// miss (the disk fallback lives in the store that wraps this cache, not
// here).
type LRUCache[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

// New creates an LRUCache bounded to size entries.
func New[K comparable, V any](size int) *LRUCache[K, V] {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[K, V](size)
	if err != nil {
		// Only returns an error for a non-positive size, which we just
		// normalized above.
		panic(err)
	}
	return &LRUCache[K, V]{cache: cache}
}

// Add inserts or updates the value for key.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.cache.Add(key, value)
}

// Get returns the cached value for key, if present.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	return c.cache.Get(key)
}

// Has returns whether key is cached, without affecting recency.
func (c *LRUCache[K, V]) Has(key K) bool {
	return c.cache.Contains(key)
}

// Remove evicts key from the cache.
func (c *LRUCache[K, V]) Remove(key K) {
	c.cache.Remove(key)
}

// Len returns the number of entries currently cached.
func (c *LRUCache[K, V]) Len() int {
	return c.cache.Len()
}

// SetCache is a bounded key -> set-of-T cache whose cardinality bound
// applies to the number of keys, not the total number of elements across
// all sets. When full, a random key is evicted to make room - cheaper
// than tracking per-key recency for a structure whose sets can each grow
// unboundedly (spec.md §4.1).
type SetCache[K comparable, T comparable] struct {
	maxKeys int
	sets    map[K]map[T]struct{}
	order   []K
}

// NewSetCache creates a SetCache bounded to maxKeys keys.
func NewSetCache[K comparable, T comparable](maxKeys int) *SetCache[K, T] {
	return &SetCache[K, T]{
		maxKeys: maxKeys,
		sets:    make(map[K]map[T]struct{}),
	}
}

// Get returns a read-only view of the set stored under key.
func (c *SetCache[K, T]) Get(key K) (map[T]struct{}, bool) {
	set, ok := c.sets[key]
	return set, ok
}

// Has returns whether key has a cached set at all.
func (c *SetCache[K, T]) Has(key K) bool {
	_, ok := c.sets[key]
	return ok
}

// InitSet creates an empty set under key, evicting a random victim first
// if the cache is at capacity. If key is already present this is a no-op.
func (c *SetCache[K, T]) InitSet(key K) {
	if _, ok := c.sets[key]; ok {
		return
	}
	c.evictIfFull()
	c.sets[key] = make(map[T]struct{})
	c.order = append(c.order, key)
}

// Add inserts element into the set under key, creating the set (and
// evicting if necessary) if absent.
func (c *SetCache[K, T]) Add(key K, element T) {
	if _, ok := c.sets[key]; !ok {
		c.InitSet(key)
	}
	c.sets[key][element] = struct{}{}
}

// Remove deletes element from the set under key, if both exist.
func (c *SetCache[K, T]) Remove(key K, element T) {
	set, ok := c.sets[key]
	if !ok {
		return
	}
	delete(set, element)
}

// Evict removes key and its set entirely from the cache.
func (c *SetCache[K, T]) Evict(key K) {
	delete(c.sets, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *SetCache[K, T]) evictIfFull() {
	if c.maxKeys <= 0 || len(c.sets) < c.maxKeys {
		return
	}
	victimIndex := rand.Intn(len(c.order))
	victim := c.order[victimIndex]
	delete(c.sets, victim)
	c.order = append(c.order[:victimIndex], c.order[victimIndex+1:]...)
}
