// Package filter translates typed predicates into compressed doc-id
// bitmaps (spec.md §4.2, §4.3), with a bounded result cache keyed by
// predicate fingerprint.
package filter

import (
	"container/list"
	"sync"

	"github.com/wizenheimer/qcore/bitmap"
	"github.com/wizenheimer/qcore/predicate"
)

// DefaultCacheSize is used when a non-positive size is requested, matching
// the teacher LRU's own defaulting behavior.
const DefaultCacheSize = 256

// Cache is a bounded, thread-safe LRU mapping from Predicate fingerprint to
// a shared compressed bitmap. Get takes the exclusive lock as Set does,
// because a hit reorders the LRU list; only Len uses the shared read lock.
// Access is internally synchronized so a cache miss that triggers bitmap
// construction never blocks unrelated keys (callers build off the critical
// section, then call Set once).
//
// Grounded on the container/list-backed LRU in
// standardbeagle-lci/internal/semantic/lru_cache.go, generalized from
// *normalizedQuery values to shared *bitmap.Bitmap values and re-keyed by
// predicate fingerprint instead of a raw string.
type Cache struct {
	maxSize int

	mu    sync.RWMutex
	items map[string]*list.Element
	order *list.List
}

type entry struct {
	key   string
	value *bitmap.Bitmap
}

// NewCache creates an LRU cache holding at most maxSize entries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get looks up p's bitmap, marking it most-recently-used on a hit.
func (c *Cache) Get(p predicate.Predicate) (*bitmap.Bitmap, bool) {
	key := p.Fingerprint()
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry).value, true
	}
	return nil, false
}

// Set inserts or updates p's bitmap, evicting the least-recently-used entry
// if the cache is now over capacity.
func (c *Cache) Set(p predicate.Predicate, bm *bitmap.Bitmap) {
	key := p.Fingerprint()
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry).value = bm
		return
	}

	e := &entry{key: key, value: bm}
	elem := c.order.PushFront(e)
	c.items[key] = elem

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Reset removes every entry, matching QueryBuilder::reset_cache() —
// invalidation on index rebuild is the caller's responsibility.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
