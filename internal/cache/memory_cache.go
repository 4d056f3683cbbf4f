package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jobtrail/jobtrail/internal/core"
)

// MemoryCache is an in-memory implementation of the core.Cache port.
// It honors the same TTL semantics as FileCache without persistence.
type MemoryCache struct {
	entries map[string]*core.CacheEntry
	mu      sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*core.CacheEntry),
	}
}

// Get returns the entry for key, or nil when absent or expired
func (c *MemoryCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if entry.Expired(time.Now()) {
		delete(c.entries, key)
		return nil, nil
	}
	return entry, nil
}

// Set stores value under key with the given TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value *core.ClassificationResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &core.CacheEntry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Prune removes expired entries
func (c *MemoryCache) Prune(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
		}
	}
	return nil
}
