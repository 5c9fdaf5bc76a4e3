package adapters

import (
	"container/list"
	"context"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
)

// LRUCache memoises model metadata lookups. It holds at most capacity
// entries; the least recently read one goes first. Entries stored with a
// ttlSeconds of zero or less live until evicted.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front is most recent; values are *lruEntry
	index    map[string]*list.Element
	now      func() time.Time
	stats    CacheStats
}

type lruEntry struct {
	key      string
	value    []byte
	deadline time.Time
}

func (e *lruEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// CacheStats counts lookups since the cache was created.
type CacheStats struct {
	Hits      int
	Misses    int
	Evictions int
}

func NewLRUCache(capacity int) *LRUCache {
	return &LRUCache{
		capacity: max(capacity, 1),
		order:    list.New(),
		index:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	entry := el.Value.(*lruEntry)
	if entry.expired(c.now()) {
		c.drop(el)
		c.stats.Misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return entry.value, true
}

func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &lruEntry{key: key, value: value}
	if ttlSeconds > 0 {
		entry.deadline = c.now().Add(time.Duration(ttlSeconds) * time.Second)
	}

	if el, ok := c.index[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return nil
	}
	c.index[key] = c.order.PushFront(entry)

	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
		c.stats.Evictions++
	}
	return nil
}

func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
	return nil
}

// Len counts stored entries, including expired ones not yet reaped.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *LRUCache) drop(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*lruEntry).key)
}

var _ ports.Cache = (*LRUCache)(nil)
