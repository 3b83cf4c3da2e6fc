// Package cache holds the bounded caches used by the verification service.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/floatdrop/lru"

	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
)

// DefaultSize is the number of ring hash points kept by default
const DefaultSize = 1024

// HashPoints is a concurrency-safe LRU of ring hash points. It satisfies
// lsag.HashPointCache.
type HashPoints struct {
	mu  sync.Mutex
	lru *lru.LRU[string, curve.Point]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewHashPoints creates a cache holding at most size points.
func NewHashPoints(size int) *HashPoints {
	if size <= 0 {
		size = DefaultSize
	}
	return &HashPoints{lru: lru.New[string, curve.Point](size)}
}

// Get returns the cached point for key
func (c *HashPoints) Get(key string) (curve.Point, bool) {
	c.mu.Lock()
	p := c.lru.Get(key)
	c.mu.Unlock()

	if p == nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return *p, true
}

// Add stores p under key, evicting the least recently used entry when full
func (c *HashPoints) Add(key string, p curve.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Set(key, p)
}

// Len returns the number of cached points
func (c *HashPoints) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

// Stats returns cache statistics for monitoring
func (c *HashPoints) Stats() map[string]int {
	return map[string]int{
		"entries": c.Len(),
		"hits":    int(c.hits.Load()),
		"misses":  int(c.misses.Load()),
	}
}
