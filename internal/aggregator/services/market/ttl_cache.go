package market

import (
	"container/list"
	"sync"
	"time"
)

// TTLCache is a thread-safe bounded LRU cache whose entries expire after a fixed TTL.
// Expired entries are invisible to Get and are purged on the next Set.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	cache   map[K]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type ttlEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func NewTTLCache[K comparable, V any](maxSize int, ttl time.Duration) *TTLCache[K, V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &TTLCache[K, V]{
		cache:   make(map[K]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value and its expiry. An expired entry reports ok=false.
func (c *TTLCache[K, V]) Get(key K) (value V, expiresAt time.Time, ok bool) {
	c.mu.RLock()
	elem, found := c.cache[key]
	if !found {
		c.mu.RUnlock()
		return value, expiresAt, false
	}
	entry := elem.Value.(*ttlEntry[K, V])
	if !c.now().Before(entry.expiresAt) {
		c.mu.RUnlock()
		return value, expiresAt, false
	}
	value, expiresAt = entry.value, entry.expiresAt
	c.mu.RUnlock()

	// Promote to front (requires write lock)
	c.mu.Lock()
	if elem, found = c.cache[key]; found {
		c.lru.MoveToFront(elem)
	}
	c.mu.Unlock()
	return value, expiresAt, true
}

// Set stores value for one TTL, purging expired entries and evicting the least
// recently used ones when full.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.purgeExpired(now)

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*ttlEntry[K, V])
		entry.value = value
		entry.expiresAt = now.Add(c.ttl)
		return
	}

	for len(c.cache) >= c.maxSize {
		c.evictLRU()
	}

	entry := &ttlEntry[K, V]{key: key, value: value, expiresAt: now.Add(c.ttl)}
	c.cache[key] = c.lru.PushFront(entry)
}

// Must be called with mu held
func (c *TTLCache[K, V]) purgeExpired(now time.Time) {
	for key, elem := range c.cache {
		if !now.Before(elem.Value.(*ttlEntry[K, V]).expiresAt) {
			c.lru.Remove(elem)
			delete(c.cache, key)
		}
	}
}

// Must be called with mu held
func (c *TTLCache[K, V]) evictLRU() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*ttlEntry[K, V])
	c.lru.Remove(back)
	delete(c.cache, entry.key)
}

// Len counts stored entries, including expired ones not yet purged.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[K]*list.Element, c.maxSize)
	c.lru.Init()
}
