// Pomelo compares the hit-rate behavior of cache replacement policies under different workloads.
// This module defines the contract every policy implements, so the plain LRU, the LRU-K variant,
// the sharded wrapper, the LFU cache and the ARC engine all share the same API.

package cache

// Policy defines the interface for a generic key-value replacement policy. Reads and writes both count
// as accesses for the policy's bookkeeping; how an access translates into recency or frequency state is
// up to the implementation.
type Policy[K comparable, V any] interface {
	// Get returns the value cached for the given key and a boolean indicating whether it was found.
	Get(key K) (V, bool)
	// Put inserts or updates a key-value pair. It never fails; a zero-capacity policy treats it as a no-op.
	Put(key K, value V)
	// Contains reports whether the key is live in the cache, without counting as an access.
	Contains(key K) bool
	Len() int  // Returns the number of live entries.
	Cap() int  // Returns the maximum number of live entries.
	Keys() []K // Returns a slice of all live keys, in no particular order.
	Purge()    // Removes all items from the cache and resets the policy state.
}

// NoOp is a policy that doesn't store any items. It serves as the always-miss
// baseline in workload comparisons and as the stand-in when caching is disabled.
type NoOp[K comparable, V any] struct { // Implements Policy.
}

var _ Policy[int, int] = (*NoOp[int, int])(nil)

// NewNoOp returns a no-operation policy that does not store any items.
func NewNoOp[K comparable, V any]() *NoOp[K, V] {
	return &NoOp[K, V]{}
}

// Get always returns false, indicating the key is not found.
func (n *NoOp[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}

// Put does nothing.
func (n *NoOp[K, V]) Put(key K, value V) {}

// Contains always returns false, as there are no keys stored.
func (n *NoOp[K, V]) Contains(key K) bool {
	return false
}

// Len always returns 0.
func (n *NoOp[K, V]) Len() int {
	return 0
}

// Cap always returns 0.
func (n *NoOp[K, V]) Cap() int {
	return 0
}

// Keys always returns nil, as there are no keys stored.
func (n *NoOp[K, V]) Keys() []K {
	return nil
}

// Purge does nothing, as there are no items to remove.
func (n *NoOp[K, V]) Purge() {}
