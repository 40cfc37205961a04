package utils

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero means no expiry
}

func (e *cacheEntry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// CacheStats is a snapshot of cache counters
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// SmartCache is an LRU cache with TTL support
type SmartCache[V any] struct {
	maxSize int
	ttl     time.Duration

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front is most recently used
	stats CacheStats
}

// NewSmartCache creates a new cache with LRU eviction and TTL.
// A non-positive maxSize disables caching entirely.
func NewSmartCache[V any](maxSize int, ttl time.Duration) *SmartCache[V] {
	return &SmartCache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Enabled reports whether Set stores anything
func (c *SmartCache[V]) Enabled() bool {
	return c.maxSize > 0
}

// Get retrieves a value from the cache
func (c *SmartCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	entry := elem.Value.(*cacheEntry[V])
	if entry.expired(time.Now()) {
		c.removeLocked(elem)
		c.stats.Misses++
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.stats.Hits++
	return entry.value, true
}

// Set adds or replaces a value, evicting the least recently used entry when full
func (c *SmartCache[V]) Set(key string, value V) {
	if !c.Enabled() {
		return
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry[V])
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry[V]{key: key, value: value, expiresAt: expiresAt})

	for c.order.Len() > c.maxSize {
		c.removeLocked(c.order.Back())
		c.stats.Evictions++
	}
}

// Delete removes a value from the cache
func (c *SmartCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeLocked(elem)
	}
}

// Size returns the current number of entries
func (c *SmartCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the cache counters
func (c *SmartCache[V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.order.Len()
	return s
}

// CleanupExpired removes all expired entries and returns how many went
func (c *SmartCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*cacheEntry[V]).expired(now) {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// RunCleanup sweeps expired entries every interval until stop is closed.
// It blocks; run it in its own goroutine.
func (c *SmartCache[V]) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stop:
			return
		}
	}
}

// removeLocked unlinks elem. Caller holds c.mu.
func (c *SmartCache[V]) removeLocked(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry[V]).key)
}
