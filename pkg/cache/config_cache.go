package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/jneaimi/locplat/pkg/fieldmap"
)

// ConfigCache keeps field-mapping configurations and field-extraction
// results close to the pipeline. Extraction keys embed the config hash, so
// entries produced under an older config can never be served after a
// re-save.
type ConfigCache struct {
	store         Store
	configTTL     time.Duration
	extractionTTL time.Duration
	logger        *logrus.Logger
}

// NewConfigCache creates a config cache over the given backend.
func NewConfigCache(store Store, configTTL, extractionTTL time.Duration) *ConfigCache {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &ConfigCache{
		store:         store,
		configTTL:     configTTL,
		extractionTTL: extractionTTL,
		logger:        logger,
	}
}

func configKey(clientID, collection string) string {
	return fmt.Sprintf("field_config:v%d:%s:%s", cacheVersion, clientID, collection)
}

func extractionKey(doc map[string]interface{}, configHash, language string) string {
	raw, err := json.Marshal(doc)
	if err != nil {
		raw = []byte(fmt.Sprint(doc))
	}
	if len(raw) > maxHashedContent {
		raw = raw[:maxHashedContent]
	}
	key := fmt.Sprintf("field_extraction:v%d:%s:%016x", cacheVersion, configHash, xxhash.Sum64(raw))
	if language != "" {
		key += ":" + language
	}
	return key
}

// GetConfig returns a cached configuration for the client/collection pair.
func (c *ConfigCache) GetConfig(ctx context.Context, clientID, collection string) (*fieldmap.Config, bool) {
	raw, found, err := c.store.Get(ctx, configKey(clientID, collection))
	if err != nil || !found {
		return nil, false
	}
	var cfg fieldmap.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		c.logger.WithError(err).Warn("Dropping undecodable cached config")
		_, _ = c.store.Delete(ctx, configKey(clientID, collection))
		return nil, false
	}
	return &cfg, true
}

// PutConfig caches a configuration.
func (c *ConfigCache) PutConfig(ctx context.Context, cfg *fieldmap.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, configKey(cfg.ClientID, cfg.CollectionName), raw, c.configTTL)
}

// Invalidate removes cached configs for a client. An empty collection
// removes every collection of that client.
func (c *ConfigCache) Invalidate(ctx context.Context, clientID, collection string) (int, error) {
	if collection != "" {
		return c.store.Delete(ctx, configKey(clientID, collection))
	}
	return c.store.DeletePattern(ctx, fmt.Sprintf("field_config:v%d:%s:*", cacheVersion, clientID))
}

// GetExtraction returns a cached extraction result for a document under the
// given config hash and language.
func (c *ConfigCache) GetExtraction(ctx context.Context, doc map[string]interface{}, configHash, language string) (*fieldmap.Extraction, bool) {
	raw, found, err := c.store.Get(ctx, extractionKey(doc, configHash, language))
	if err != nil || !found {
		return nil, false
	}
	var ex fieldmap.Extraction
	if err := json.Unmarshal(raw, &ex); err != nil {
		return nil, false
	}
	return &ex, true
}

// PutExtraction caches an extraction result.
func (c *ConfigCache) PutExtraction(ctx context.Context, doc map[string]interface{}, configHash, language string, ex *fieldmap.Extraction) error {
	raw, err := json.Marshal(ex)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, extractionKey(doc, configHash, language), raw, c.extractionTTL)
}
