// This module implements the plain least-recently-used policy: a doubly linked list ordered from
// most to least recently accessed plus a key index. Any read or write hit moves the entry to the
// front; when the cache is full the back entry is evicted.

package cache

import (
	"maps"
	"slices"
	"sync"

	"github.com/nobletooth/pomelo/pkg/utils"
)

// lruEntry holds one live key-value pair. The key is carried in the node so eviction
// can erase the index entry without a reverse lookup.
type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a thread-safe, fixed-capacity least-recently-used cache.
type LRU[K comparable, V any] struct {
	capacity int
	entries  *linkedList[*lruEntry[K, V]]           // MRU at the front, LRU at the back.
	index    map[K]*linkedListNode[*lruEntry[K, V]] // Provides lookup for an entry by its key.
	// onEvict is an optional callback executed after an entry is evicted. It runs under the cache
	// lock, so it must not call back into the cache or we'd deadlock.
	onEvict func(K, V)
	metrics *policyMetrics
	mux     sync.Mutex
}

var _ Policy[int, int] = (*LRU[int, int])(nil)

// NewLRU is the constructor for LRU. The capacity must be at least 1.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	return newLRU[K, V]("lru", capacity, nil)
}

// NewLRUWithEviction is like NewLRU but notifies onEvict for every evicted entry.
func NewLRUWithEviction[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	return newLRU[K, V]("lru", capacity, onEvict)
}

// newLRU builds an LRU reporting metrics under the given policy label; composite policies pass an
// empty label so their building blocks stay silent.
func newLRU[K comparable, V any](metricsLabel string, capacity int, onEvict func(K, V)) *LRU[K, V] {
	if capacity <= 0 {
		utils.RaiseInvariant("lru", "non_positive_capacity",
			"Invalid capacity has been given to LRU cache.", "capacity", capacity)
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		entries:  new(linkedList[*lruEntry[K, V]]),
		index:    make(map[K]*linkedListNode[*lruEntry[K, V]], capacity),
		onEvict:  onEvict,
		metrics:  newPolicyMetrics(metricsLabel),
	}
}

// Get retrieves a value from the cache. A hit marks the entry as the most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool /*found*/) {
	c.mux.Lock()
	defer c.mux.Unlock()

	node, found := c.index[key]
	if !found {
		c.metrics.miss()
		var zero V
		return zero, false
	}
	c.entries.MoveToFront(node)
	c.metrics.hit()
	return node.Value.value, true
}

// Put inserts or updates a key-value pair. Updating an existing key refreshes its recency; adding a
// new key to a full cache evicts the least recently used entry first.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if node, found := c.index[key]; found {
		node.Value.value = value
		c.entries.MoveToFront(node)
		return
	}
	if c.entries.Len() >= c.capacity {
		c.evictLRU()
	}
	c.index[key] = c.entries.PushFront(&lruEntry[K, V]{key: key, value: value})
}

// Remove erases a key from the cache if present. The eviction callback is not invoked; removal is a
// caller decision, not a replacement decision.
func (c *LRU[K, V]) Remove(key K) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if node, found := c.index[key]; found {
		c.entries.Remove(node)
		delete(c.index, key)
	}
}

// Contains reports key presence without refreshing its recency.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	_, found := c.index[key]
	return found
}

func (c *LRU[K, V]) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.entries.Len()
}

func (c *LRU[K, V]) Cap() int {
	return c.capacity
}

func (c *LRU[K, V]) Keys() []K {
	c.mux.Lock()
	defer c.mux.Unlock()
	return slices.Collect(maps.Keys(c.index))
}

func (c *LRU[K, V]) Purge() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.entries = new(linkedList[*lruEntry[K, V]])
	c.index = make(map[K]*linkedListNode[*lruEntry[K, V]], c.capacity)
}

// evictLRU drops the least recently used entry. Callers must hold the lock.
func (c *LRU[K, V]) evictLRU() {
	node := c.entries.PopBack()
	if node == nil {
		return
	}
	entry := node.Value
	delete(c.index, entry.key)
	c.metrics.eviction()
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}
