// Package cache provides a small in-memory LRU with per-entry TTL. The
// enumerator keeps one across cycles so slow lookups are not repeated on
// every loop iteration.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// LRU is safe for concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time

	hits, misses int
}

// New creates an LRU holding at most capacity entries, each living ttl
// (0 = no expiry).
func New[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 256
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := el.Value.(*entry[V])
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.remove(el)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if c.ttl > 0 {
		exp = c.now().Add(c.ttl)
	}
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value, e.expiresAt = value, exp
		c.order.MoveToFront(el)
		return
	}
	for len(c.items) >= c.capacity {
		c.remove(c.order.Back())
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: exp})
}

// GetOrLoad returns the cached value or calls load and caches a successful
// result. Concurrent misses for the same key may both call load.
func (c *LRU[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counters.
func (c *LRU[V]) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// must hold c.mu
func (c *LRU[V]) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(c.items, el.Value.(*entry[V]).key)
	c.order.Remove(el)
}
