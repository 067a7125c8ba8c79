package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Cache is the shared interface over the memory, disk, and layered caches.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// QueryKey builds a stable cache key for one retrieval-collaborator call.
func QueryKey(query, timeRange string, categories []string) string {
	payload := query + "|" + timeRange + "|" + strings.Join(categories, ",")
	return "query:" + digest(payload)
}

// PageKey builds a cache key for one fetched page.
func PageKey(url string) string {
	return "page:" + digest(url)
}

func digest(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
