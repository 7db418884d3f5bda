package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUK_AdmissionThreshold(t *testing.T) {
	c := NewLRUK[int, string](2 /*capacity*/, 4 /*historyCapacity*/, 2 /*k*/)

	c.Put(1, "one") // First touch: staged, not yet admitted.
	assert.False(t, c.main.Contains(1), "One touch must not reach the main cache")
	assert.True(t, c.Contains(1), "Staged value is still retrievable")

	got, found := c.Get(1) // Second touch admits the key.
	assert.True(t, found)
	assert.Equal(t, "one", got)
	assert.True(t, c.main.Contains(1), "Second touch should promote into the main cache")
}

func TestLRUK_StagedGetIsAHit(t *testing.T) {
	c := NewLRUK[int, string](2, 4, 3 /*k*/)
	c.Put(1, "one")
	got, found := c.Get(1)
	assert.True(t, found, "A staged value must be readable before admission")
	assert.Equal(t, "one", got)
	assert.False(t, c.main.Contains(1), "Two touches with k=3 must not admit")
}

func TestLRUK_RepeatedPutsAdmit(t *testing.T) {
	c := NewLRUK[int, string](2, 4, 2)
	c.Put(1, "one")
	c.Put(1, "uno") // Second write admits and carries the newest value.
	assert.True(t, c.main.Contains(1))
	got, found := c.Get(1)
	assert.True(t, found)
	assert.Equal(t, "uno", got)
}

func TestLRUK_ScanResistance(t *testing.T) {
	c := NewLRUK[int, int](2, 8, 2)
	// Establish two hot keys in the main cache.
	for _, key := range []int{1, 2} {
		c.Put(key, key)
		c.Get(key)
	}
	assert.True(t, c.main.Contains(1))
	assert.True(t, c.main.Contains(2))

	// A one-shot scan over cold keys must not displace the hot ones.
	for key := 100; key < 120; key++ {
		c.Put(key, key)
	}
	assert.True(t, c.main.Contains(1), "Scan traffic must not flush the main cache")
	assert.True(t, c.main.Contains(2), "Scan traffic must not flush the main cache")
}

func TestLRUK_HistoryEvictionDropsStagedValue(t *testing.T) {
	c := NewLRUK[int, string](2, 1 /*historyCapacity*/, 2)
	c.Put(1, "one")
	c.Put(2, "two") // The history holds one key; staging 2 evicts 1's history and staged value.

	_, found := c.Get(1)
	assert.False(t, found, "Key dropped from history must lose its staged value")
	got, found := c.Get(2)
	assert.True(t, found)
	assert.Equal(t, "two", got)
}

func TestLRUK_LenAndKeys(t *testing.T) {
	c := NewLRUK[int, int](4, 4, 2)
	c.Put(1, 1)
	c.Put(1, 1) // Admitted.
	c.Put(2, 2) // Staged.
	assert.Equal(t, 2, c.Len())
	assert.ElementsMatch(t, []int{1, 2}, c.Keys())
}

func TestLRUK_Purge(t *testing.T) {
	c := NewLRUK[int, int](4, 4, 2)
	c.Put(1, 1)
	c.Put(1, 1)
	c.Put(2, 2)
	c.Purge()
	assert.Equal(t, 0, c.Len())
	for _, key := range []int{1, 2} {
		_, found := c.Get(key)
		assert.False(t, found)
	}
}

func TestLRUK_InvalidKIsClamped(t *testing.T) {
	c := NewLRUK[int, int](2, 2, 0)
	c.Put(1, 1) // With k clamped to 1 every put admits immediately.
	assert.True(t, c.main.Contains(1))
}
