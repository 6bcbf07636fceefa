package schema

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWith(col string) TableSchema {
	return TableSchema{col: TypeString}
}

func TestCache_SetAndGet(t *testing.T) {
	c := NewCache(2)
	c.Set("Users", tableWith("UserID"))

	got, ok := c.Get("Users")
	require.True(t, ok)
	assert.Equal(t, tableWith("UserID"), got)

	_, ok = c.Get("Missing")
	assert.False(t, ok)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.Set("A", tableWith("a"))
	c.Set("B", tableWith("b"))
	c.Set("C", tableWith("c")) // evicts A

	_, ok := c.Get("A")
	assert.False(t, ok, "A should have been evicted")
	_, ok = c.Get("B")
	assert.True(t, ok)
	_, ok = c.Get("C")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestCache_GetPromotes(t *testing.T) {
	c := NewCache(2)
	c.Set("A", tableWith("a"))
	c.Set("B", tableWith("b"))

	// Touch A so B becomes the eviction candidate.
	_, ok := c.Get("A")
	require.True(t, ok)

	c.Set("C", tableWith("c"))

	_, ok = c.Get("A")
	assert.True(t, ok, "recently used A should survive")
	_, ok = c.Get("B")
	assert.False(t, ok, "B should have been evicted")
}

func TestCache_SetExistingPromotesWithoutEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("A", tableWith("a"))
	c.Set("B", tableWith("b"))

	// Re-set A: promotes, no eviction, and updates the value.
	c.Set("A", tableWith("a2"))
	assert.Equal(t, 2, c.Size())

	c.Set("C", tableWith("c"))
	_, ok := c.Get("B")
	assert.False(t, ok, "B was LRU after A's re-set")

	got, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, tableWith("a2"), got)
}

func TestCache_GetAll(t *testing.T) {
	c := NewCache(4)
	c.Set("A", tableWith("a"))
	c.Set("B", tableWith("b"))

	all := c.GetAll()
	assert.Len(t, all, 2)
	assert.Equal(t, tableWith("a"), all["A"])
	assert.Equal(t, tableWith("b"), all["B"])
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache(8)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				table := fmt.Sprintf("T%d", (n+j)%12)
				c.Set(table, tableWith("col"))
				c.Get(table)
				c.GetAll()
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 8)
}
