package cache

import "time"

// LayeredCache reads through a fast front cache to a durable back cache
type LayeredCache struct {
	front Cache
	back  Cache
}

// NewLayeredCache creates a layered cache, typically memory in front of disk or redis
func NewLayeredCache(front, back Cache) *LayeredCache {
	return &LayeredCache{
		front: front,
		back:  back,
	}
}

// Get checks the front cache first, then the back cache
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.front.Get(key); found {
		return val, true
	}

	if val, found := c.back.Get(key); found {
		// Promote with the front cache's default TTL
		_ = c.front.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both caches
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.back.Set(key, value, ttl); err != nil {
		return err
	}
	return c.front.Set(key, value, ttl)
}

// Delete removes a value from both caches
func (c *LayeredCache) Delete(key string) error {
	_ = c.front.Delete(key)
	return c.back.Delete(key)
}

// Clear removes all values from both caches
func (c *LayeredCache) Clear() error {
	_ = c.front.Clear()
	return c.back.Clear()
}
