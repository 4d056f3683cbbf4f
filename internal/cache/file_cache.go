package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jobtrail/jobtrail/internal/core"
	"go.uber.org/zap"
)

// FileCache is a file-backed implementation of the core.Cache port.
// Each logical namespace persists as one flat JSON table of
// key -> {value, expires_at}, fully rewritten on every mutation. The
// write amplification is accepted for crash safety: classification
// volume is bounded by the mailbox scan rate.
type FileCache struct {
	path    string
	entries map[string]*core.CacheEntry
	loaded  bool
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewFileCache creates a cache persisting to <dir>/<namespace>.json.
// The durable file is loaded lazily on first access; a missing or
// corrupt file is treated as an empty cache.
func NewFileCache(dir, namespace string, logger *zap.Logger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{
		path:    filepath.Join(dir, namespace+".json"),
		entries: make(map[string]*core.CacheEntry),
		logger:  logger,
	}, nil
}

// load reads the durable table, dropping entries that expired while
// the process was down. Caller must hold mu.
func (c *FileCache) load() {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("Failed to read cache file, starting empty",
				zap.String("path", c.path),
				zap.Error(err))
		}
		return
	}

	var table map[string]*core.CacheEntry
	if err := json.Unmarshal(data, &table); err != nil {
		c.logger.Warn("Corrupt cache file, starting empty",
			zap.String("path", c.path),
			zap.Error(err))
		return
	}

	now := time.Now()
	expired := 0
	for key, entry := range table {
		if entry == nil || entry.Expired(now) {
			expired++
			continue
		}
		c.entries[key] = entry
	}

	c.logger.Debug("Loaded cache file",
		zap.String("path", c.path),
		zap.Int("entries", len(c.entries)),
		zap.Int("expired", expired))
}

// flush rewrites the full table to the durable file. Caller must hold mu.
func (c *FileCache) flush() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal cache table: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Get returns the entry for key, or nil when absent. An expired entry
// is deleted before returning absent.
func (c *FileCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()

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

// Set stores value under key and synchronously flushes the table
func (c *FileCache) Set(ctx context.Context, key string, value *core.ClassificationResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()

	c.entries[key] = &core.CacheEntry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	return c.flush()
}

// Prune removes all expired entries and flushes the table
func (c *FileCache) Prune(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load()

	now := time.Now()
	pruned := 0
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			pruned++
		}
	}
	if pruned == 0 {
		return nil
	}

	c.logger.Debug("Pruned expired cache entries",
		zap.String("path", c.path),
		zap.Int("pruned", pruned))
	return c.flush()
}
