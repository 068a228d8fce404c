package cache

import (
	"container/list"
	"sync"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a bounded, thread-safe least-recently-used cache. Lookups promote
// the key to most-recently-used; inserting into a full cache evicts the
// least-recently-used key first. The element count never exceeds capacity.
type LRU[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most recently used
	mu       sync.Mutex
}

// NewLRU returns an empty cache holding at most capacity distinct keys.
// Panics if capacity is not positive.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: LRU capacity must be positive")
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached value and marks the key as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[K, V]).value, true
	}

	var zero V
	return zero, false
}

// Put inserts or replaces the value for key, evicting the least-recently-used
// key if the cache is full. A key is never stored twice.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

// GetOrAdd returns the cached value for key, calling factory and caching its
// result on a miss. The factory runs under the cache lock, so it must not
// call back into the cache.
func (c *LRU[K, V]) GetOrAdd(key K, factory func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[K, V]).value
	}

	value := factory()
	c.put(key, value)
	return value
}

// Remove drops key from the cache. Reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if ok {
		c.drop(elem)
	}
	return ok
}

// Len returns the current number of cached keys.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear empties the cache.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.order.Init()
}

// put must be called with the lock held.
func (c *LRU[K, V]) put(key K, value V) {
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[K, V]).value = value
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})

	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.drop(oldest)
		}
	}
}

// drop must be called with the lock held.
func (c *LRU[K, V]) drop(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry[K, V]).key)
}
