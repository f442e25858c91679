// Package cache provides byte-oriented key/value stores with expiry.
package cache

import (
	"strings"
	"time"
)

// Cache defines the interface for caching.
// A zero ttl means the backend default; a negative ttl means no expiry.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key from its parts
func Key(parts ...string) string {
	return "chorus:v1:" + strings.Join(parts, ":")
}
