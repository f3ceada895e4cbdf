package services

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// cacheKey keeps document-mode and query-mode vectors of the same text apart.
type cacheKey struct {
	mode domain.EmbeddingMode
	text string
}

// EmbeddingCache maps (mode, text) to a vector for the lifetime of its owner.
// It is safe for concurrent use. The first vector stored for a key wins and
// callers always receive copies, so a returned vector can never change.
type EmbeddingCache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]float32

	hits   atomic.Int64
	misses atomic.Int64
}

// NewEmbeddingCache creates an empty cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{entries: make(map[cacheKey][]float32)}
}

// Get returns the vector cached for text in mode.
func (c *EmbeddingCache) Get(mode domain.EmbeddingMode, text string) ([]float32, bool) {
	c.mu.RLock()
	vec, ok := c.entries[cacheKey{mode, text}]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return slices.Clone(vec), true
}

// Put stores vec unless the key is already present, and returns a copy of
// whichever vector the cache now holds.
func (c *EmbeddingCache) Put(mode domain.EmbeddingMode, text string, vec []float32) []float32 {
	key := cacheKey{mode, text}

	c.mu.Lock()
	stored, ok := c.entries[key]
	if !ok {
		stored = slices.Clone(vec)
		c.entries[key] = stored
	}
	c.mu.Unlock()

	return slices.Clone(stored)
}

// Len returns the number of cached vectors across both modes.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry and resets the counters.
func (c *EmbeddingCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey][]float32)
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns lookup hit and miss counts.
func (c *EmbeddingCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
