package records

import (
	"strings"
	"sync"
)

// ListCache tracks a generation counter per entity list. Invalidate bumps
// the generation so list views know to refetch.
type ListCache struct {
	mu          sync.Mutex
	generations map[string]int
}

// NewListCache constructs an empty cache.
func NewListCache() *ListCache {
	return &ListCache{generations: make(map[string]int)}
}

// Invalidate marks the cached list for entity stale.
func (c *ListCache) Invalidate(entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[strings.TrimSpace(entity)]++
}

// Generation reports how many times entity was invalidated.
func (c *ListCache) Generation(entity string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[strings.TrimSpace(entity)]
}
