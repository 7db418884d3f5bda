// This module implements the adaptive replacement cache (ARC).
// Live entries split across two MRU-ordered lists: T1 holds keys touched once since admission
// (recency), T2 holds keys touched more than once (frequency). Evicted keys leave a value-less
// ghost record behind: T1 evictions in B1, T2 evictions in B2, each ghost list bounded by the
// capacity and indexed for O(1) membership checks. A hit on a ghost is still a miss for the
// caller, but it tunes the target T1 size p: a B1 hit means the recency side was evicted too
// aggressively and p grows, a B2 hit shrinks it. The replacement decision then evicts from T1
// when it exceeds p (or ties with it during a B1-hit) and from T2 otherwise.
//
// Ordering rule: on a ghost hit, the ghost record is fully detached from its list and index
// before any p adjustment or replacement runs. Replacement can trim the very same ghost list, so
// a handle looked up earlier must never be touched after it. Every operation holds the cache lock
// for its full duration, which makes the detach-then-decide sequence atomic for observers.

package cache

import (
	"maps"
	"slices"
	"sync"

	"github.com/nobletooth/pomelo/pkg/utils"
)

// arcEntry holds one live key-value pair along with its owning partition.
type arcEntry[K comparable, V any] struct {
	key   K
	value V
	inT2  bool // false means the entry lives in T1, true in T2.
}

// ARC is a thread-safe, fixed-capacity adaptive replacement cache. Unlike the other policies a
// zero capacity is allowed: every Put becomes a no-op and every Get a miss.
type ARC[K comparable, V any] struct {
	capacity int
	p        int // Target size of T1, kept within [0, capacity].

	t1, t2 *linkedList[*arcEntry[K, V]] // Live lists, MRU at the front.
	index  map[K]*linkedListNode[*arcEntry[K, V]]

	b1, b2           *linkedList[K] // Ghost lists, most recently evicted at the front.
	b1Index, b2Index map[K]*linkedListNode[K]

	metrics *policyMetrics
	mux     sync.Mutex
}

var _ Policy[int, int] = (*ARC[int, int])(nil)

// NewARC is the constructor for ARC. A capacity of 0 yields a cache that stores nothing.
func NewARC[K comparable, V any](capacity int) *ARC[K, V] {
	if capacity < 0 {
		utils.RaiseInvariant("arc", "negative_capacity",
			"Invalid capacity has been given to ARC cache.", "capacity", capacity)
		capacity = 0
	}
	c := &ARC[K, V]{capacity: capacity, metrics: newPolicyMetrics("arc")}
	c.reset()
	return c
}

// Get retrieves a value from the cache. Any hit promotes the key to T2's MRU position, whether it
// came from T1 or T2: a confirmed re-access is evidence of frequency either way. A ghost hit is
// reported as a miss — ghosts hold no value — but adjusts p and runs a replacement so that the
// expected re-insert finds room.
func (c *ARC[K, V]) Get(key K) (V, bool /*found*/) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if node, found := c.index[key]; found {
		value := node.Value.value
		c.moveToT2MRU(node)
		c.metrics.hit()
		return value, true
	}
	if node, found := c.b1Index[key]; found {
		// Detach the ghost before deciding anything; the replacement below may trim B1.
		delete(c.b1Index, key)
		c.b1.Remove(node)
		c.adjustPOnB1Hit()
		c.replace(true /*hitInB1*/)
	} else if node, found := c.b2Index[key]; found {
		delete(c.b2Index, key)
		c.b2.Remove(node)
		c.adjustPOnB2Hit()
		c.replace(false /*hitInB1*/)
	}
	c.metrics.miss()
	var zero V
	return zero, false
}

// Put inserts or updates a key-value pair. A write to a live key counts as a frequency signal just
// like a read. A write to a ghost key reinstates it directly into T2. A brand-new key passes the
// capacity pressure checks and lands in T1.
func (c *ARC[K, V]) Put(key K, value V) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if node, found := c.index[key]; found {
		node.Value.value = value
		c.moveToT2MRU(node)
		return
	}
	if node, found := c.b1Index[key]; found {
		// Same detach-then-decide sequence as in Get, but here the caller supplied the value, so
		// the key goes straight back into the frequency partition.
		delete(c.b1Index, key)
		c.b1.Remove(node)
		c.adjustPOnB1Hit()
		c.replace(true /*hitInB1*/)
		c.insertMRU(c.t2, key, value, true /*inT2*/)
		return
	}
	if node, found := c.b2Index[key]; found {
		delete(c.b2Index, key)
		c.b2.Remove(node)
		c.adjustPOnB2Hit()
		c.replace(false /*hitInB1*/)
		c.insertMRU(c.t2, key, value, true /*inT2*/)
		return
	}

	if c.capacity == 0 {
		return // Ghost bookkeeping is pointless when nothing can be cached.
	}
	if c.t1.Len()+c.b1.Len() >= c.capacity {
		// The recency footprint (T1 + B1) is saturated; shed one unit before admitting.
		if c.t1.Len() < c.capacity {
			c.dropGhostLRU(c.b1, c.b1Index)
			if c.t1.Len()+c.t2.Len() >= c.capacity {
				c.replace(false /*hitInB1*/)
			}
		} else {
			// T1 alone fills the cache; its LRU goes to B1 regardless of p, since with p at the
			// capacity the regular replacement would wrongly look at the empty T2.
			c.evictLiveLRU(c.t1, c.b1, c.b1Index)
		}
	} else if c.t1.Len()+c.t2.Len() >= c.capacity {
		c.replace(false /*hitInB1*/)
	}
	c.insertMRU(c.t1, key, value, false /*inT2*/)
}

// Contains reports whether the key is live in T1 or T2. Ghost presence doesn't count.
func (c *ARC[K, V]) Contains(key K) bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	_, found := c.index[key]
	return found
}

// Len returns the number of live entries; ghosts are not counted.
func (c *ARC[K, V]) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.t1.Len() + c.t2.Len()
}

func (c *ARC[K, V]) Cap() int {
	return c.capacity
}

// P returns the current target size of T1, for tests and tuning.
func (c *ARC[K, V]) P() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.p
}

func (c *ARC[K, V]) Keys() []K {
	c.mux.Lock()
	defer c.mux.Unlock()
	return slices.Collect(maps.Keys(c.index))
}

// Purge drops all live entries and ghosts and resets p to 0.
func (c *ARC[K, V]) Purge() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.reset()
}

func (c *ARC[K, V]) reset() {
	c.p = 0
	c.t1, c.t2 = new(linkedList[*arcEntry[K, V]]), new(linkedList[*arcEntry[K, V]])
	c.index = make(map[K]*linkedListNode[*arcEntry[K, V]], c.capacity)
	c.b1, c.b2 = new(linkedList[K]), new(linkedList[K])
	c.b1Index = make(map[K]*linkedListNode[K], c.capacity)
	c.b2Index = make(map[K]*linkedListNode[K], c.capacity)
}

// moveToT2MRU relocates a live entry to T2's MRU position. Entries already in T2 are just moved to
// the front; T1 entries flip their owning partition. Callers must hold the lock.
func (c *ARC[K, V]) moveToT2MRU(node *linkedListNode[*arcEntry[K, V]]) {
	entry := node.Value
	if entry.inT2 {
		c.t2.MoveToFront(node)
		return
	}
	c.t1.Remove(node)
	entry.inT2 = true
	c.index[entry.key] = c.t2.PushFront(entry)
}

// insertMRU admits a key at the MRU end of the given live list and indexes it. Callers must hold
// the lock.
func (c *ARC[K, V]) insertMRU(live *linkedList[*arcEntry[K, V]], key K, value V, inT2 bool) {
	c.index[key] = live.PushFront(&arcEntry[K, V]{key: key, value: value, inT2: inT2})
}

// replace evicts one entry to make room for an admission: from T1 into B1 when T1 exceeds its
// target p, from T2 into B2 otherwise. hitInB1 breaks the |T1| == p tie toward T1, so a B1-hit in
// progress can't push T1 past its quota. With both live lists empty (transient, zero-capacity
// aside) this is a no-op.
func (c *ARC[K, V]) replace(hitInB1 bool) {
	t1Len := c.t1.Len()
	if t1Len > 0 && (t1Len > c.p || (hitInB1 && t1Len == c.p)) {
		c.evictLiveLRU(c.t1, c.b1, c.b1Index)
	} else if c.t2.Len() > 0 {
		c.evictLiveLRU(c.t2, c.b2, c.b2Index)
	}
}

// evictLiveLRU drops the LRU entry of a live list, erases it from the entry index and records its
// key as the freshest ghost of the paired ghost list, trimming that list back to the capacity
// bound. Callers must hold the lock.
func (c *ARC[K, V]) evictLiveLRU(live *linkedList[*arcEntry[K, V]],
	ghosts *linkedList[K], ghostIndex map[K]*linkedListNode[K]) {
	node := live.PopBack()
	if node == nil {
		return
	}
	entry := node.Value
	delete(c.index, entry.key)
	ghostIndex[entry.key] = ghosts.PushFront(entry.key)
	for ghosts.Len() > c.capacity {
		c.dropGhostLRU(ghosts, ghostIndex)
	}
	c.metrics.eviction()
}

// dropGhostLRU forgets the least recently evicted ghost of the given list. Callers must hold the
// lock.
func (c *ARC[K, V]) dropGhostLRU(ghosts *linkedList[K], ghostIndex map[K]*linkedListNode[K]) {
	if node := ghosts.PopBack(); node != nil {
		delete(ghostIndex, node.Value)
	}
}

// adjustPOnB1Hit grows the T1 target: a B1 hit means the recency side was evicted too soon. The
// step is the ghost list size ratio so the smaller B1 is relative to B2, the harder p is pulled
// up, with integer division and a floor of 1 (also covering an empty B1).
func (c *ARC[K, V]) adjustPOnB1Hit() {
	delta := 1
	if c.b1.Len() > 0 {
		delta = max(1, c.b2.Len()/c.b1.Len())
	}
	c.p = min(c.capacity, c.p+delta)
}

// adjustPOnB2Hit shrinks the T1 target symmetrically, clamping at 0.
func (c *ARC[K, V]) adjustPOnB2Hit() {
	delta := 1
	if c.b2.Len() > 0 {
		delta = max(1, c.b1.Len()/c.b2.Len())
	}
	if c.p > delta {
		c.p -= delta
	} else {
		c.p = 0
	}
}
