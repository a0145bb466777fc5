package utils

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache is a typed expiring cache
type Cache[T any] struct {
	cache *cache.Cache
}

// NewCache creates Cache instance
func NewCache[T any](expire time.Duration, cleanupInterval time.Duration) *Cache[T] {
	return &Cache[T]{
		cache: cache.New(expire, cleanupInterval),
	}
}

// Set value with key
func (c *Cache[T]) Set(key string, value T) {
	c.cache.Set(key, value, cache.DefaultExpiration)
}

// Get value by key
func (c *Cache[T]) Get(key string) (T, bool) {
	v, found := c.cache.Get(key)
	if !found {
		var zero T
		return zero, false
	}
	r, ok := v.(T)
	return r, ok
}

// Delete value by key
func (c *Cache[T]) Delete(key string) {
	c.cache.Delete(key)
}

// Flush removes everything
func (c *Cache[T]) Flush() {
	c.cache.Flush()
}
