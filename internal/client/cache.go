package client

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 30 * time.Second
)

// Cache keeps recent read responses keyed by path and query. A nil *Cache
// is valid and caches nothing.
type Cache struct {
	lru *expirable.LRU[string, any]
}

// NewCache returns a cache holding up to size entries for ttl each, or nil
// when size is not positive.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		return nil
	}
	return &Cache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

func (c *Cache) get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *Cache) add(key string, v any) {
	if c == nil {
		return
	}
	c.lru.Add(key, v)
}

// Invalidate drops every entry of the entity rooted at path, list pages and
// single records alike. It returns the number of entries removed.
func (c *Cache) Invalidate(path string) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, path+"?") || strings.HasPrefix(k, path+"/") {
			if c.lru.Remove(k) {
				n++
			}
		}
	}
	return n
}

// Purge empties the cache.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// cached returns the entry under key or runs fetch and stores its result.
// Errors are never cached.
func cached[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	t, err := fetch(ctx)
	if err != nil {
		return t, err
	}
	c.add(key, t)
	return t, nil
}
