// Package cache keeps short-lived list responses so repeated identical
// queries skip the store. Entries are dropped wholesale on any write.
package cache

import (
	"sync"
	"time"
)

const DefaultMaxEntries = 512

type Cache[V any] struct {
	mu         sync.RWMutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	items      map[string]item[V]
}

type item[V any] struct {
	val     V
	expires time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache[V]{
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		items:      make(map[string]item[V]),
	}
}

// WithMaxEntries bounds the number of live keys.
func (c *Cache[V]) WithMaxEntries(n int) *Cache[V] {
	if n > 0 {
		c.maxEntries = n
	}
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if !c.now().Before(it.expires) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur.expires.Equal(it.expires) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return it.val, true
}

func (c *Cache[V]) Set(key string, val V) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.items[key] = item[V]{val: val, expires: now.Add(c.ttl)}
}

// evictLocked drops expired entries, or the one closest to expiry when
// nothing has expired yet.
func (c *Cache[V]) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, it := range c.items {
		if !now.Before(it.expires) {
			delete(c.items, k)
			continue
		}
		if oldestKey == "" || it.expires.Before(oldest) {
			oldestKey, oldest = k, it.expires
		}
	}

	if len(c.items) >= c.maxEntries && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// Purge empties the cache.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	c.items = make(map[string]item[V])
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
