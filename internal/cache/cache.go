// Package cache provides the in-process TTL caches used by the answer pipeline.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	writtenAt time.Time
}

// Cache is a mutex-guarded TTL cache with a fixed capacity. Entries are
// evicted oldest-written-first when the cache is full; reads do not refresh
// an entry's age. Expired entries are dropped on access, there is no
// background sweeper.
type Cache[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	ll       *list.List // front = newest write
	items    map[string]*list.Element

	now func() time.Time // overridable in tests
}

// New creates a cache holding at most capacity entries for at most ttl each.
func New[V any](ttl time.Duration, capacity int) *Cache[V] {
	return &Cache[V]{
		ttl:      ttl,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the live value for key. A stale entry is removed and reported
// as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	ent := elem.Value.(*entry[V])
	if c.now().Sub(ent.writtenAt) > c.ttl {
		c.removeElement(elem)
		return zero, false
	}

	return ent.value, true
}

// Put stores value under key, overwriting any existing entry. When the cache
// is at capacity the oldest-written entry is evicted inline.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.writtenAt = c.now()
		c.ll.MoveToFront(elem)
		return
	}

	if c.ll.Len() >= c.capacity {
		if oldest := c.ll.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	elem := c.ll.PushFront(&entry[V]{
		key:       key,
		value:     value,
		writtenAt: c.now(),
	})
	c.items[key] = elem
}

// Len reports the number of stored entries, stale ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

func (c *Cache[V]) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry[V])
	c.ll.Remove(elem)
	delete(c.items, ent.key)
}
