package datasource

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheSize bounds the entries a provider cache holds.
const DefaultCacheSize = 512

// Cache is a bounded, thread-safe TTL cache. Expired entries are evicted in
// the background and the least recently used entry goes first once the
// cache is full.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewCache creates a cache of at most size entries that live for ttl. A
// non-positive ttl disables caching; a non-positive size uses
// DefaultCacheSize.
func NewCache[V any](size int, ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		return &Cache[V]{}
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get retrieves a value. Expired entries are reported as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	if c.lru == nil {
		var zero V
		return zero, false
	}
	return c.lru.Get(key)
}

// Set stores a value with the cache TTL.
func (c *Cache[V]) Set(key string, value V) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, value)
}
