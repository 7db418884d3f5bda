// This module implements LRU-K: a key is admitted into the main LRU only after it has been touched
// K times. Until then its access count lives in a small history LRU and its value is staged on the
// side, so one-shot scans can't flush the main cache. Evicting a key from the history drops its
// staged value as well.

package cache

import (
	"maps"
	"slices"
	"sync"

	"github.com/nobletooth/pomelo/pkg/utils"
)

// LRUK is a thread-safe LRU variant that promotes keys into the main cache after k touches.
type LRUK[K comparable, V any] struct {
	k       int
	main    *LRU[K, V]   // Keys with at least k touches.
	history *LRU[K, int] // Touch counts for keys not yet admitted.
	staged  map[K]V      // Values waiting for admission, keyed in lockstep with history.
	metrics *policyMetrics
	mux     sync.Mutex
}

var _ Policy[int, int] = (*LRUK[int, int])(nil)

// NewLRUK is the constructor for LRUK. capacity bounds the main cache, historyCapacity bounds how
// many not-yet-admitted keys are tracked, and k is the touch threshold for admission.
func NewLRUK[K comparable, V any](capacity, historyCapacity, k int) *LRUK[K, V] {
	if k <= 0 {
		utils.RaiseInvariant("lruk", "non_positive_k",
			"Invalid touch threshold has been given to LRU-K cache.", "k", k)
		k = 1
	}
	c := &LRUK[K, V]{
		k:       k,
		main:    newLRU[K, V]("" /*metricsLabel*/, capacity, nil),
		staged:  make(map[K]V),
		metrics: newPolicyMetrics("lruk"),
	}
	// A history eviction means the key lost its admission race; its staged value goes with it.
	c.history = newLRU[K, int]("" /*metricsLabel*/, historyCapacity, func(key K, _ int) {
		delete(c.staged, key)
	})
	return c
}

// Get returns the cached value for the key. Staged values count as hits too: the data is present,
// it just hasn't earned a main-cache slot yet. Every hit counts toward the admission threshold.
func (c *LRUK[K, V]) Get(key K) (V, bool /*found*/) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if value, found := c.main.Get(key); found {
		c.metrics.hit()
		return value, true
	}
	if value, found := c.staged[key]; found {
		c.touch(key, value)
		c.metrics.hit()
		return value, true
	}
	c.metrics.miss()
	var zero V
	return zero, false
}

// Put inserts or updates a key-value pair. New keys are staged until they reach k touches.
func (c *LRUK[K, V]) Put(key K, value V) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.main.Contains(key) {
		c.main.Put(key, value)
		return
	}
	c.staged[key] = value
	c.touch(key, value)
}

// touch increments the key's history count and promotes it into the main cache once the count
// reaches k. Callers must hold the lock and have the value staged.
func (c *LRUK[K, V]) touch(key K, value V) {
	touches, _ := c.history.Get(key)
	touches++
	if touches < c.k {
		c.history.Put(key, touches)
		return
	}
	c.history.Remove(key)
	delete(c.staged, key)
	c.main.Put(key, value)
}

// Contains reports whether the key's value is retrievable, whether admitted or still staged.
func (c *LRUK[K, V]) Contains(key K) bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.main.Contains(key) {
		return true
	}
	_, staged := c.staged[key]
	return staged
}

func (c *LRUK[K, V]) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.main.Len() + len(c.staged)
}

// Cap returns the capacity of the main cache; staged entries are bounded separately by the
// history capacity.
func (c *LRUK[K, V]) Cap() int {
	return c.main.Cap()
}

func (c *LRUK[K, V]) Keys() []K {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append(c.main.Keys(), slices.Collect(maps.Keys(c.staged))...)
}

func (c *LRUK[K, V]) Purge() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.main.Purge()
	c.history.Purge()
	c.staged = make(map[K]V)
}
