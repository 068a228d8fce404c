package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetPut(t *testing.T) {
	t.Parallel()
	c := NewLRU[string, int](3)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// Replacing a key must not grow the cache.
	c.Put("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()
	const capacity = 128
	c := NewLRU[string, int](capacity)

	for i := range capacity + 1 {
		c.Put(fmt.Sprintf("key-%d", i), i)
	}

	// Exactly one eviction: the first key inserted.
	assert.Equal(t, capacity, c.Len())
	_, ok := c.Get("key-0")
	assert.False(t, ok)
	_, ok = c.Get("key-1")
	assert.True(t, ok)
}

func TestLRU_GetPromotes(t *testing.T) {
	t.Parallel()
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)

	// Touching "a" makes "b" the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)

	_, ok = c.Get("a")
	assert.True(t, ok, "recently read key must survive the eviction")
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used key must be evicted")
}

func TestLRU_GetOrAdd(t *testing.T) {
	t.Parallel()
	c := NewLRU[string, int](2)

	calls := 0
	factory := func() int {
		calls++
		return 42
	}

	assert.Equal(t, 42, c.GetOrAdd("a", factory))
	assert.Equal(t, 42, c.GetOrAdd("a", factory))
	assert.Equal(t, 1, calls, "factory must run only on the first miss")
}

func TestLRU_RemoveClear(t *testing.T) {
	t.Parallel()
	c := NewLRU[string, int](4)

	c.Put("a", 1)
	c.Put("b", 2)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()
	const capacity = 64
	c := NewLRU[int, int](capacity)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 1000 {
				key := (g*1000 + i) % 200
				c.Put(key, i)
				c.Get(key)
				if i%10 == 0 {
					c.Remove(key)
				}
			}
		}()
	}
	wg.Wait()

	// Run under -race; the capacity invariant must hold afterwards.
	assert.LessOrEqual(t, c.Len(), capacity)
}

func TestNewLRU_InvalidCapacity(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewLRU[string, int](0) })
}
