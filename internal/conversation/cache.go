package conversation

import (
	"container/list"
	"sync"
)

// DefaultCapacity is the number of resident conversations when none is configured.
const DefaultCapacity = 10

// Observer receives cache events. All methods are called with the cache lock held
// and must not call back into the cache.
type Observer interface {
	CacheHit()
	CacheMiss()
	CacheEvicted(id string)
	CacheSize(n int)
}

// Cache is a fixed-capacity mapping from an identifier to an Engine.
// Entries are kept in first-insertion order; when an insert pushes the size
// over capacity the oldest entry is dropped. Lookups never reorder entries.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // of *cacheEntry, oldest at Front
	items    map[string]*list.Element
	observer Observer
}

type cacheEntry struct {
	id     string
	engine *Engine
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithObserver reports hits, misses, evictions and size changes to o.
func WithObserver(o Observer) CacheOption {
	return func(c *Cache) { c.observer = o }
}

// NewCache creates a cache holding at most capacity engines. A capacity
// below 1 falls back to DefaultCapacity.
func NewCache(capacity int, opts ...CacheOption) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetOrCreate returns the resident engine for id. On a miss it calls factory,
// inserts the result as the newest entry and evicts the oldest if needed.
// factory runs under the cache lock so concurrent misses for the same id
// build exactly one engine. A factory error is returned unchanged and the
// cache is left untouched.
func (c *Cache) GetOrCreate(id string, factory func() (*Engine, error)) (*Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[id]; ok {
		if c.observer != nil {
			c.observer.CacheHit()
		}
		return el.Value.(*cacheEntry).engine, nil
	}
	if c.observer != nil {
		c.observer.CacheMiss()
	}

	engine, err := factory()
	if err != nil {
		return nil, err
	}
	c.insertLocked(id, engine)
	return engine, nil
}

// Put stores engine under id. A new id becomes the newest entry and may evict
// the oldest; an existing id has its engine replaced in place, keeping its
// original position.
func (c *Cache) Put(id string, engine *Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[id]; ok {
		el.Value.(*cacheEntry).engine = engine
		return
	}
	c.insertLocked(id, engine)
}

func (c *Cache) insertLocked(id string, engine *Engine) {
	c.items[id] = c.order.PushBack(&cacheEntry{id: id, engine: engine})

	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		entry := c.order.Remove(oldest).(*cacheEntry)
		delete(c.items, entry.id)
		if c.observer != nil {
			c.observer.CacheEvicted(entry.id)
		}
	}
	if c.observer != nil {
		c.observer.CacheSize(c.order.Len())
	}
}

// Get returns the resident engine for id without creating one.
func (c *Cache) Get(id string) (*Engine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).engine, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) Capacity() int { return c.capacity }

func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

// Keys returns resident ids, oldest first.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keysLocked()
}

func (c *Cache) keysLocked() []string {
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*cacheEntry).id)
	}
	return keys
}

// Status is a point-in-time view of the cache for introspection endpoints.
type Status struct {
	Size      int      `json:"size"`
	Capacity  int      `json:"capacity"`
	ReportIDs []string `json:"report_ids"`
}

// Snapshot returns size, capacity and keys read under a single lock.
func (c *Cache) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.keysLocked()
	return Status{Size: len(keys), Capacity: c.capacity, ReportIDs: keys}
}
