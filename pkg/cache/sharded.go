// This module implements policy sharding which distributes keys uniformly across independent policy
// instances. Since each thread-safe policy has a mutex to avoid races between reads and writes,
// sharding spreads the lock contention: goroutines only serialize against others touching the same
// shard. Note that sharding changes global hit-rate behavior — each shard makes replacement
// decisions over its own slice of the keyspace — which is exactly why it's benchmarked here as its
// own policy rather than folded into the others.

package cache

import (
	"github.com/nobletooth/pomelo/pkg/utils"
)

// Sharded is a policy that distributes keys across multiple underlying policy instances (shards)
// chosen by an xxhash of the key.
type Sharded[K comparable, V any] struct {
	shards []Policy[K, V]
	hash   func(key K) uint64 // Helps choose the shard index.
}

var _ Policy[int, int] = (*Sharded[int, int])(nil)

// NewSharded is the constructor for Sharded. newShard builds one shard of the given capacity; the
// total capacity is split across shardCount shards, rounded up so the aggregate never undershoots
// the requested capacity.
func NewSharded[K comparable, V any](newShard func(capacity int) Policy[K, V],
	capacity, shardCount int) *Sharded[K, V] {
	// Ensure there is at least one shard.
	if shardCount <= 0 {
		utils.RaiseInvariant("sharded", "non_positive_shard_count",
			"Invalid shard count has been given to sharded cache.", "shardCount", shardCount)
		shardCount = 1
	}
	shardCapacity := (capacity + shardCount - 1) / shardCount
	sharded := &Sharded[K, V]{shards: make([]Policy[K, V], shardCount), hash: keyHasher[K]()}
	for i := range shardCount {
		sharded.shards[i] = newShard(shardCapacity)
	}
	return sharded
}

// getShard determines which shard a given key belongs to, by hashing the key and mapping the hash
// value to a shard index with the modulo operator.
func (c *Sharded[K, V]) getShard(key K) Policy[K, V] {
	return c.shards[c.hash(key)%uint64(len(c.shards))]
}

// Get finds the appropriate shard for the key and retrieves the value from it.
func (c *Sharded[K, V]) Get(key K) (V, bool /*found*/) {
	return c.getShard(key).Get(key)
}

// Put finds the appropriate shard for the key and inserts the key-value pair into it.
func (c *Sharded[K, V]) Put(key K, value V) {
	c.getShard(key).Put(key, value)
}

// Contains asks the key's shard for presence without counting an access.
func (c *Sharded[K, V]) Contains(key K) bool {
	return c.getShard(key).Contains(key)
}

// Len sums the live entry counts of all shards.
func (c *Sharded[K, V]) Len() int {
	total := 0
	for _, shard := range c.shards {
		total += shard.Len()
	}
	return total
}

// Cap sums the shard capacities. Due to the rounded-up split this can exceed the requested
// capacity by up to shardCount-1.
func (c *Sharded[K, V]) Cap() int {
	total := 0
	for _, shard := range c.shards {
		total += shard.Cap()
	}
	return total
}

// Keys aggregates the keys from all shards into a single slice. This can be a resource-intensive
// operation, as it requires iterating over every shard and collecting its keys.
func (c *Sharded[K, V]) Keys() []K {
	keys := make([]K, 0)
	for _, shard := range c.shards {
		keys = append(keys, shard.Keys()...)
	}
	return keys
}

// Purge clears all items by calling Purge on every shard.
func (c *Sharded[K, V]) Purge() {
	for _, shard := range c.shards {
		shard.Purge()
	}
}
