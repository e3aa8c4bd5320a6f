package stream

import (
	"sync"

	"github.com/opentube/opentube/log"
	"github.com/samber/mo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultCapacity is the cache size used when a non-positive capacity is given.
const DefaultCapacity = 50

// Cache is a bounded least-recently-used map from source URL to resolved set.
// Both Get and Put count as a touch. Entries are never durable: a caller holding
// a *Set must not assume it is still cached.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  *orderedmap.OrderedMap[string, *Set]
}

// NewCache returns an empty cache holding at most capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Cache{
		capacity: capacity,
		entries:  orderedmap.New[string, *Set](orderedmap.WithCapacity[string, *Set](capacity + 1)),
	}
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Get returns the set cached for url and marks it most recently used.
func (c *Cache) Get(url string) mo.Option[*Set] {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.entries.Get(url)
	if !ok {
		return mo.None[*Set]()
	}

	_ = c.entries.MoveToBack(url)
	return mo.Some(set)
}

// Put stores set under url, evicting the least recently used entry when over capacity.
func (c *Cache) Put(url string, set *Set) {
	if set == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Set(url, set)
	_ = c.entries.MoveToBack(url)

	for c.entries.Len() > c.capacity {
		oldest := c.entries.Oldest()
		c.entries.Delete(oldest.Key)
		log.Debugf("stream cache evicted %s", oldest.Key)
	}
}

// Invalidate drops the entry for url, if any.
func (c *Cache) Invalidate(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Delete(url)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = orderedmap.New[string, *Set](orderedmap.WithCapacity[string, *Set](c.capacity + 1))
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Keys lists the cached URLs from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.entries.Len())
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}
