package pdftext

import (
	"sync"
	"time"
)

// Cache keeps extracted text per source path and drops an entry when the file
// changes underneath it. Eviction is oldest-first once the bound is reached.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[string]cacheEntry
	order   []string
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	text    string
}

func NewCache(max int) *Cache {
	if max <= 0 {
		max = 256
	}
	return &Cache{
		max:     max,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Get(path string, modTime time.Time, size int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	if !ok {
		return "", false
	}
	if !entry.modTime.Equal(modTime) || entry.size != size {
		delete(c.entries, path)
		return "", false
	}
	return entry.text, true
}

func (c *Cache) Put(path string, modTime time.Time, size int64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[path]; !exists {
		c.order = append(c.order, path)
	}
	c.entries[path] = cacheEntry{modTime: modTime, size: size, text: text}

	for len(c.entries) > c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
