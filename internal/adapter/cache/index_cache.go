package cache

import (
	"sync"
	"time"

	"pdfchat/internal/adapter/store"
	"pdfchat/internal/domain"
)

// Entry is a loaded index together with its metadata.
type Entry struct {
	Index    *store.VectorIndex
	Metadata domain.IndexMetadata
}

// IndexCache keeps recently opened indexes in memory so reopening a shared
// link does not download and decode index.db again.
type IndexCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	value     Entry
	timestamp time.Time
}

func NewIndexCache(maxSize int, ttl time.Duration) *IndexCache {
	if maxSize <= 0 {
		maxSize = 8
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &IndexCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func (c *IndexCache) Get(id string) (Entry, bool) {
	c.mu.RLock()
	entry, exists := c.entries[id]
	c.mu.RUnlock()

	if !exists {
		return Entry{}, false
	}

	if time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, id)
		c.removeFromOrder(id)
		c.mu.Unlock()
		return Entry{}, false
	}

	c.mu.Lock()
	c.moveToEnd(id)
	c.mu.Unlock()

	return entry.value, true
}

func (c *IndexCache) Put(id string, value Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; exists {
		c.entries[id] = &cacheEntry{value: value, timestamp: time.Now()}
		c.moveToEnd(id)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[id] = &cacheEntry{value: value, timestamp: time.Now()}
	c.order = append(c.order, id)
}

// GetOrLoad returns the cached entry for id, calling load on a miss.
// Failed loads are not cached.
func (c *IndexCache) GetOrLoad(id string, load func() (Entry, error)) (Entry, error) {
	if value, hit := c.Get(id); hit {
		return value, nil
	}

	value, err := load()
	if err != nil {
		return Entry{}, err
	}

	c.Put(id, value)
	return value, nil
}

func (c *IndexCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
	c.removeFromOrder(id)
}

func (c *IndexCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *IndexCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *IndexCache) moveToEnd(id string) {
	c.removeFromOrder(id)
	c.order = append(c.order, id)
}

func (c *IndexCache) removeFromOrder(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
