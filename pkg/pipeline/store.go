package pipeline

import (
	"context"
	"sync"

	"github.com/jneaimi/locplat/pkg/cache"
	"github.com/jneaimi/locplat/pkg/fieldmap"
)

// ConfigStore supplies field-mapping configurations. GetConfig never fails
// on a missing entry; it returns the pass-through default instead.
type ConfigStore interface {
	GetConfig(ctx context.Context, clientID, collection string) (*fieldmap.Config, error)
	SaveConfig(ctx context.Context, cfg *fieldmap.Config) error
}

// MemoryConfigStore is an in-process ConfigStore.
type MemoryConfigStore struct {
	mu      sync.RWMutex
	configs map[string]*fieldmap.Config
}

// NewMemoryConfigStore creates an empty store.
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{configs: make(map[string]*fieldmap.Config)}
}

func storeKey(clientID, collection string) string {
	return clientID + ":" + collection
}

// GetConfig implements ConfigStore.
func (s *MemoryConfigStore) GetConfig(_ context.Context, clientID, collection string) (*fieldmap.Config, error) {
	s.mu.RLock()
	cfg, ok := s.configs[storeKey(clientID, collection)]
	s.mu.RUnlock()
	if !ok {
		return fieldmap.DefaultConfig(clientID, collection), nil
	}
	return cfg, nil
}

// SaveConfig implements ConfigStore.
func (s *MemoryConfigStore) SaveConfig(_ context.Context, cfg *fieldmap.Config) error {
	s.mu.Lock()
	s.configs[storeKey(cfg.ClientID, cfg.CollectionName)] = cfg
	s.mu.Unlock()
	return nil
}

// CachingConfigStore decorates a ConfigStore with the config cache. Saves
// invalidate the cached entry before re-caching the new config, so derived
// results keyed on the old config hash go stale immediately.
type CachingConfigStore struct {
	inner ConfigStore
	cache *cache.ConfigCache
}

// NewCachingConfigStore wraps a store with a cache layer.
func NewCachingConfigStore(inner ConfigStore, configCache *cache.ConfigCache) *CachingConfigStore {
	return &CachingConfigStore{inner: inner, cache: configCache}
}

// GetConfig implements ConfigStore.
func (s *CachingConfigStore) GetConfig(ctx context.Context, clientID, collection string) (*fieldmap.Config, error) {
	if cfg, found := s.cache.GetConfig(ctx, clientID, collection); found {
		return cfg, nil
	}
	cfg, err := s.inner.GetConfig(ctx, clientID, collection)
	if err != nil {
		return nil, err
	}
	_ = s.cache.PutConfig(ctx, cfg)
	return cfg, nil
}

// SaveConfig implements ConfigStore.
func (s *CachingConfigStore) SaveConfig(ctx context.Context, cfg *fieldmap.Config) error {
	if err := s.inner.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	_, _ = s.cache.Invalidate(ctx, cfg.ClientID, cfg.CollectionName)
	return s.cache.PutConfig(ctx, cfg)
}
