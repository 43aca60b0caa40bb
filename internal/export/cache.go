package export

import (
	"strings"
	"sync"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

// CachedPlanner memoizes export plans behind an LRU cache. Datasets are
// immutable, so a cached plan only goes stale when the session's boundary
// set changes or a dataset is deleted; callers invalidate the session on
// those mutations.
type CachedPlanner struct {
	cache *lruCache
}

// NewCachedPlanner creates a planner cache holding up to maxEntries plans.
func NewCachedPlanner(maxEntries int) *CachedPlanner {
	return &CachedPlanner{cache: newLRUCache(maxEntries)}
}

// Plan returns the cached plan for the dataset or builds and caches one.
func (p *CachedPlanner) Plan(sessionID string, meta domain.Dataset, obs []domain.Observation, boundaries []domain.BoundaryRegion) (ExportPlan, error) {
	key := sessionID + "|" + meta.ID
	if plan, ok := p.cache.get(key); ok {
		return plan, nil
	}
	plan, err := Plan(meta, obs, boundaries)
	if err != nil {
		return ExportPlan{}, err
	}
	p.cache.put(key, plan)
	return plan, nil
}

// InvalidateSession drops every cached plan belonging to a session.
func (p *CachedPlanner) InvalidateSession(sessionID string) {
	p.cache.invalidatePrefix(sessionID + "|")
}

// lruCache is a simple thread-safe LRU cache for export plans.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	head       *cacheEntry // most recently used
	tail       *cacheEntry // least recently used
}

type cacheEntry struct {
	key   string
	value ExportPlan
	prev  *cacheEntry
	next  *cacheEntry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

func (c *lruCache) get(key string) (ExportPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return ExportPlan{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value ExportPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &cacheEntry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) invalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			c.remove(e)
		}
	}
}

func (c *lruCache) moveToFront(e *cacheEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *cacheEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
