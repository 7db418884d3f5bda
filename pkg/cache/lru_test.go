package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_AddAndGet(t *testing.T) {
	c := NewLRU[string, int](3)

	t.Run("Get existing key", func(t *testing.T) {
		c.Put("a", 1)
		got, found := c.Get("a")
		assert.True(t, found)
		assert.Equal(t, 1, got)
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, found := c.Get("nope")
		assert.False(t, found)
	})

	t.Run("Update refreshes value", func(t *testing.T) {
		c.Put("a", 42)
		got, found := c.Get("a")
		assert.True(t, found)
		assert.Equal(t, 42, got)
		assert.Equal(t, 1, c.Len(), "Update must not grow the cache")
	})
}

func TestLRU_EvictionOrder(t *testing.T) {
	c := NewLRU[int, string](3)
	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(3, "three")

	// Touch 1 so that 2 becomes the LRU entry.
	_, found := c.Get(1)
	assert.True(t, found)

	c.Put(4, "four")
	assert.False(t, c.Contains(2), "LRU entry should have been evicted")
	assert.True(t, c.Contains(1), "Recently read entry should survive")
	assert.True(t, c.Contains(3))
	assert.True(t, c.Contains(4))
	assert.Equal(t, 3, c.Len())
}

func TestLRU_WriteRefreshesRecency(t *testing.T) {
	c := NewLRU[int, string](2)
	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(1, "uno") // Write hit makes 2 the LRU entry.
	c.Put(3, "three")
	assert.True(t, c.Contains(1))
	assert.False(t, c.Contains(2))
}

func TestLRU_Remove(t *testing.T) {
	c := NewLRU[int, int](2)
	c.Put(1, 1)
	c.Remove(1)
	assert.False(t, c.Contains(1))
	assert.Equal(t, 0, c.Len())
	c.Remove(1) // Removing an absent key is a no-op.
	assert.Equal(t, 0, c.Len())
}

func TestLRU_EvictionCallback(t *testing.T) {
	var evicted []int
	c := NewLRUWithEviction[int, string](2, func(key int, _ string) { evicted = append(evicted, key) })
	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(3, "three")
	c.Put(4, "four")
	assert.Equal(t, []int{1, 2}, evicted, "Evictions must follow LRU order")
}

func TestLRU_Purge(t *testing.T) {
	c := NewLRU[int, int](4)
	for i := range 4 {
		c.Put(i, i)
	}
	assert.Equal(t, 4, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())
	_, found := c.Get(0)
	assert.False(t, found)

	// The cache stays usable after a purge.
	c.Put(9, 9)
	assert.True(t, c.Contains(9))
}

func TestLRU_Keys(t *testing.T) {
	c := NewLRU[string, int](5)
	expectedKeys := []string{"a", "b", "c"}
	for i, key := range expectedKeys {
		c.Put(key, i)
	}
	assert.ElementsMatch(t, expectedKeys, c.Keys())
}

func TestLRU_InvalidCapacityIsClamped(t *testing.T) {
	c := NewLRU[int, int](0)
	assert.Equal(t, 1, c.Cap(), "Non-positive capacity should be clamped to 1")
	c.Put(1, 1)
	c.Put(2, 2)
	assert.Equal(t, 1, c.Len())
}
