package cache

import (
	"fmt"

	"github.com/jobtrail/jobtrail/internal/config"
	"github.com/jobtrail/jobtrail/internal/core"
	"go.uber.org/zap"
)

// Cache namespaces. Each persists as its own durable file.
const (
	NamespaceResults = "classification"
	NamespaceSeen    = "seen"
	NamespaceAI      = "ai"
)

// Set bundles the per-namespace cache instances shared by all
// sessions. Instances are constructed once at process start and
// injected wherever needed.
type Set struct {
	Results core.Cache
	Seen    core.Cache
	AI      core.Cache
}

// NewSet creates the cache set based on configuration
func NewSet(cfg *config.Config, logger *zap.Logger) (*Set, error) {
	cacheType := cfg.GetString("cache.type")

	build := func(namespace string) (core.Cache, error) {
		switch cacheType {
		case "memory":
			return NewMemoryCache(), nil
		case "file":
			return NewFileCache(cfg.GetString("cache.dir"), namespace, logger)
		default:
			return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
		}
	}

	results, err := build(NamespaceResults)
	if err != nil {
		return nil, err
	}
	seen, err := build(NamespaceSeen)
	if err != nil {
		return nil, err
	}
	ai, err := build(NamespaceAI)
	if err != nil {
		return nil, err
	}

	return &Set{Results: results, Seen: seen, AI: ai}, nil
}
