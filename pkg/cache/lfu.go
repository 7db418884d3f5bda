// This module implements a least-frequently-used policy with periodic aging.
// Entries are grouped into frequency buckets, each an MRU-ordered list; eviction takes the oldest
// entry of the lowest non-empty bucket, so recency breaks frequency ties. Without aging, entries
// that were hot long ago hold their slots forever; once the average access frequency crosses a
// threshold, all frequencies are halved so stale heat decays.
//
// Admission keeps a bloom-filter doorkeeper of keys seen since the last aging round: a key that
// comes back after being evicted starts at frequency 2 instead of 1, giving returning keys an edge
// over one-shot scans. The doorkeeper never rejects a write; put-then-get always hits.

package cache

import (
	"encoding/binary"
	"flag"
	"maps"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/nobletooth/pomelo/pkg/utils"
)

var lfuMaxAverageFrequencyFlag = flag.Int("lfu_max_average_frequency", 1_000_000,
	"Average access frequency above which the LFU cache halves all frequency counters.")

// lfuEntry holds one live key-value pair along with its access frequency.
type lfuEntry[K comparable, V any] struct {
	key   K
	value V
	freq  int
}

// LFU is a thread-safe, fixed-capacity least-frequently-used cache with aging.
type LFU[K comparable, V any] struct {
	capacity   int
	maxAverage int // Aging threshold for the average access frequency.
	minFreq    int // Lowest frequency with a non-empty bucket; eviction starts here.
	totalFreq  int // Sum of live entry frequencies, drives the aging trigger.
	buckets    map[int]*linkedList[*lfuEntry[K, V]] // Frequency -> MRU-ordered entries.
	index      map[K]*linkedListNode[*lfuEntry[K, V]]
	doorkeeper *bloom.BloomFilter // Keys seen since the last aging round.
	hashKey    func(K) uint64     // Feeds keys to the doorkeeper.
	metrics    *policyMetrics
	mux        sync.Mutex
}

var _ Policy[int, int] = (*LFU[int, int])(nil)

// NewLFU is the constructor for LFU. The aging threshold is taken from the
// -lfu_max_average_frequency flag. The capacity must be at least 1.
func NewLFU[K comparable, V any](capacity int) *LFU[K, V] {
	return NewLFUWithMaxAverage[K, V](capacity, *lfuMaxAverageFrequencyFlag)
}

// NewLFUWithMaxAverage is like NewLFU with an explicit aging threshold: once the average access
// frequency of live entries exceeds maxAverage, every frequency counter is halved.
func NewLFUWithMaxAverage[K comparable, V any](capacity, maxAverage int) *LFU[K, V] {
	if capacity <= 0 {
		utils.RaiseInvariant("lfu", "non_positive_capacity",
			"Invalid capacity has been given to LFU cache.", "capacity", capacity)
		capacity = 1
	}
	if maxAverage <= 0 {
		utils.RaiseInvariant("lfu", "non_positive_max_average",
			"Invalid aging threshold has been given to LFU cache.", "maxAverage", maxAverage)
		maxAverage = *lfuMaxAverageFrequencyFlag
	}
	return &LFU[K, V]{
		capacity:   capacity,
		maxAverage: maxAverage,
		minFreq:    1,
		buckets:    make(map[int]*linkedList[*lfuEntry[K, V]]),
		index:      make(map[K]*linkedListNode[*lfuEntry[K, V]], capacity),
		// The doorkeeper only needs to cover the keys passing by between two aging rounds; a few
		// multiples of the capacity keeps the false-positive rate negligible.
		doorkeeper: bloom.NewWithEstimates(uint(capacity)*8, 0.01),
		hashKey:    keyHasher[K](),
		metrics:    newPolicyMetrics("lfu"),
	}
}

// Get retrieves a value from the cache. A hit bumps the entry's access frequency.
func (c *LFU[K, V]) Get(key K) (V, bool /*found*/) {
	c.mux.Lock()
	defer c.mux.Unlock()

	node, found := c.index[key]
	if !found {
		c.metrics.miss()
		var zero V
		return zero, false
	}
	value := node.Value.value
	c.increaseFrequency(node)
	c.metrics.hit()
	return value, true
}

// Put inserts or updates a key-value pair. An update bumps the frequency like a read; a new key
// evicts the least frequently used entry first when the cache is full.
func (c *LFU[K, V]) Put(key K, value V) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if node, found := c.index[key]; found {
		node.Value.value = value
		c.increaseFrequency(node)
		return
	}
	if len(c.index) >= c.capacity {
		c.evictLFU()
	}
	startFreq := 1
	if c.doorkeeperSeen(key) {
		// The key came back after losing its slot; admit it one step above cold.
		startFreq = 2
	}
	entry := &lfuEntry[K, V]{key: key, value: value, freq: startFreq}
	c.index[key] = c.bucketFor(startFreq).PushFront(entry)
	c.totalFreq += startFreq
	if len(c.index) == 1 || startFreq < c.minFreq {
		c.minFreq = startFreq
	}
	c.maybeAge()
}

func (c *LFU[K, V]) Contains(key K) bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	_, found := c.index[key]
	return found
}

func (c *LFU[K, V]) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return len(c.index)
}

func (c *LFU[K, V]) Cap() int {
	return c.capacity
}

func (c *LFU[K, V]) Keys() []K {
	c.mux.Lock()
	defer c.mux.Unlock()
	return slices.Collect(maps.Keys(c.index))
}

func (c *LFU[K, V]) Purge() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.buckets = make(map[int]*linkedList[*lfuEntry[K, V]])
	c.index = make(map[K]*linkedListNode[*lfuEntry[K, V]], c.capacity)
	c.minFreq = 1
	c.totalFreq = 0
	c.doorkeeper.ClearAll()
}

// doorkeeperSeen records the key in the doorkeeper and reports whether it was already there.
func (c *LFU[K, V]) doorkeeperSeen(key K) bool {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], c.hashKey(key))
	return c.doorkeeper.TestOrAdd(b[:])
}

// bucketFor returns the list holding entries of the given frequency, creating it if needed.
func (c *LFU[K, V]) bucketFor(freq int) *linkedList[*lfuEntry[K, V]] {
	bucket, exists := c.buckets[freq]
	if !exists {
		bucket = new(linkedList[*lfuEntry[K, V]])
		c.buckets[freq] = bucket
	}
	return bucket
}

// increaseFrequency moves the entry one bucket up and refreshes its recency within the new bucket.
// Callers must hold the lock.
func (c *LFU[K, V]) increaseFrequency(node *linkedListNode[*lfuEntry[K, V]]) {
	entry := node.Value
	oldFreq := entry.freq
	oldBucket := c.buckets[oldFreq]
	oldBucket.Remove(node)
	emptied := oldBucket.Len() == 0
	if emptied {
		delete(c.buckets, oldFreq)
	}

	entry.freq++
	c.totalFreq++
	c.index[entry.key] = c.bucketFor(entry.freq).PushFront(entry)
	if emptied && c.minFreq == oldFreq {
		// The entry itself now sits at oldFreq+1 and every other bucket is above oldFreq.
		c.minFreq = entry.freq
	}
	c.maybeAge()
}

// evictLFU drops the oldest entry of the lowest non-empty frequency bucket. Callers must hold the
// lock.
func (c *LFU[K, V]) evictLFU() {
	bucket := c.buckets[c.minFreq]
	if bucket == nil || bucket.Len() == 0 {
		c.recomputeMinFreq()
		bucket = c.buckets[c.minFreq]
		if bucket == nil {
			return // Cache is empty.
		}
	}
	node := bucket.PopBack()
	entry := node.Value
	if bucket.Len() == 0 {
		delete(c.buckets, entry.freq)
	}
	delete(c.index, entry.key)
	c.totalFreq -= entry.freq
	c.metrics.eviction()
}

// recomputeMinFreq rescans the buckets for the lowest non-empty frequency. Empty buckets are
// deleted eagerly everywhere, so scanning map keys is enough.
func (c *LFU[K, V]) recomputeMinFreq() {
	c.minFreq = 0
	for freq := range c.buckets {
		if c.minFreq == 0 || freq < c.minFreq {
			c.minFreq = freq
		}
	}
}

// maybeAge halves every frequency counter once the average access frequency exceeds the threshold,
// so heat from an old workload phase decays instead of pinning entries forever. Callers must hold
// the lock.
func (c *LFU[K, V]) maybeAge() {
	if len(c.index) == 0 || c.totalFreq <= c.maxAverage*len(c.index) {
		return
	}

	agedBuckets := make(map[int]*linkedList[*lfuEntry[K, V]])
	agedTotal := 0
	for _, bucket := range c.buckets {
		// Walk from the back so that pushing to the front preserves relative recency.
		for node := bucket.Back(); node != nil; node = node.Prev() {
			entry := node.Value
			entry.freq = max(1, entry.freq/2)
			agedTotal += entry.freq
			target, exists := agedBuckets[entry.freq]
			if !exists {
				target = new(linkedList[*lfuEntry[K, V]])
				agedBuckets[entry.freq] = target
			}
			c.index[entry.key] = target.PushFront(entry)
		}
	}
	c.buckets = agedBuckets
	c.totalFreq = agedTotal
	c.recomputeMinFreq()
	// Aging starts a new observation round for returning keys too.
	c.doorkeeper.ClearAll()
}
