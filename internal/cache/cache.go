// Package cache provides an in-memory TTL cache with lazy expiry, a periodic
// sweep, and the cache-or-fetch orchestration used by the data clients.
package cache

import (
	"strings"
	"sync"
	"time"
)

// entry is a stored value with its lifetime. Entries are immutable once
// stored; Set replaces them wholesale.
type entry struct {
	value     any
	storedAt  time.Time
	expiresAt time.Time
}

// Stats is a snapshot of cache effectiveness counters. Hits and Misses are
// lifetime counters, independent of content epochs.
type Stats struct {
	Keys   int    `json:"keys"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Cache is a string-keyed TTL cache safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	hits    uint64
	misses  uint64

	// now is replaced in tests to control expiry.
	now func() time.Time

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New creates an empty cache. If sweepInterval > 0 a background goroutine
// proactively removes expired entries at that interval so memory stays
// bounded even for keys that are never read again; call Close to stop it.
func New(sweepInterval time.Duration) *Cache {
	c := &Cache{
		entries:   make(map[string]entry),
		now:       time.Now,
		sweepStop: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Get returns the stored value if present and not expired. An expired entry
// is evicted and counted as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores or overwrites the entry with expiry now+ttl. Callers are
// responsible for never calling Set for no-store data kinds; the policy
// layer enforces that, not the cache.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: now, expiresAt: now.Add(ttl)}
}

// Delete removes a single entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeleteFunc removes every entry whose key satisfies pred.
func (c *Cache) DeleteFunc(pred func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if pred(k) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *Cache) DeletePrefix(prefix string) int {
	return c.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Clear drops all entries. The hit/miss counters are deliberately NOT reset:
// they reflect lifetime cache effectiveness, and monitoring relies on that
// continuity across clears.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats returns a snapshot of the key count and lifetime counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Keys: len(c.entries), Hits: c.hits, Misses: c.misses}
}

// Close stops the background sweep goroutine, if any.
func (c *Cache) Close() {
	c.sweepOnce.Do(func() {
		close(c.sweepStop)
	})
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.sweepStop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired entries. Sweeping does not touch the miss counter;
// only reads count toward effectiveness.
func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
