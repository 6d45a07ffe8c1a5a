package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	Disabled bool          `split_words:"true" default:"false"`
	Size     int           `split_words:"true" default:"512"`
	TTL      time.Duration `split_words:"true" default:"30m"`
}

// Cache memoizes model outputs keyed by the exact prompt parts. The owner
// of the dispatcher constructs it; a nil *Cache is valid and never hits.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

func NewCache[V any](cfg CacheConfig) *Cache[V] {
	if cfg.Disabled {
		return nil
	}
	size := cfg.Size
	if size <= 0 {
		size = 512
	}
	return &Cache[V]{
		lru: expirable.NewLRU[string, V](size, nil, cfg.TTL),
	}
}

func (c *Cache[V]) Get(parts ...string) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	return c.lru.Get(cacheKey(parts...))
}

func (c *Cache[V]) Add(value V, parts ...string) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(parts...), value)
}

func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *Cache[V]) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func cacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
