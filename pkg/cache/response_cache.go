package cache

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	responseCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_cache_hits_total",
			Help: "Number of AI response cache hits",
		},
		[]string{"provider", "model"},
	)

	responseCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_cache_misses_total",
			Help: "Number of AI response cache misses",
		},
		[]string{"provider", "model"},
	)
)

const (
	cacheVersion = 1

	// Responses above this size are zlib-compressed on write.
	compressionThreshold = 1000

	// Content size hashed into extraction keys is capped so huge documents
	// do not dominate key generation time.
	maxHashedContent = 10000
)

// providerCostTiers biases TTL by how expensive a model is to re-run.
// Unknown models land on the medium tier.
var providerCostTiers = map[string]map[string]string{
	"openai": {
		"gpt-3.5-turbo": "low",
		"gpt-4":         "high",
		"gpt-4-turbo":   "high",
		"gpt-4o":        "high",
		"gpt-4o-mini":   "medium",
	},
	"anthropic": {
		"claude-instant":    "medium",
		"claude-2":          "high",
		"claude-3-opus":     "very_high",
		"claude-3-sonnet":   "high",
		"claude-3-haiku":    "medium",
		"claude-3-5-sonnet": "high",
		"claude-3-5-haiku":  "medium",
	},
	"mistral": {
		"mistral-tiny":          "low",
		"mistral-small":         "medium",
		"mistral-medium":        "medium",
		"mistral-large":         "high",
		"mistral-7b-instruct":   "low",
		"mixtral-8x7b-instruct": "medium",
	},
	"deepseek": {
		"deepseek-coder": "medium",
		"deepseek-chat":  "medium",
		"deepseek-v2":    "medium",
	},
	"gemini": {
		"gemini-1.5-flash": "low",
		"gemini-1.5-pro":   "high",
	},
}

var tierFactors = map[string]float64{
	"low":       0.8,
	"medium":    1.0,
	"high":      1.5,
	"very_high": 2.0,
}

var contentTypeFactors = map[string]float64{
	"critical":  0.5,
	"standard":  1.0,
	"static":    7.0,
	"temporary": 0.25,
}

// Request identifies one cacheable translation response.
type Request struct {
	Prompt         string
	Provider       string
	Model          string
	Collection     string
	TargetLanguage string
}

// InvalidationFilter selects cached responses for deletion. Empty fields
// match everything.
type InvalidationFilter struct {
	Provider   string
	Model      string
	Language   string
	Collection string
}

// ResponseCache is a content-addressed cache for AI translation responses
// with cost-aware TTL and transparent compression. It is a pure accelerator:
// every value it holds is reproducible by recomputation, so backend failures
// degrade to misses.
type ResponseCache struct {
	store   Store
	baseTTL time.Duration
	logger  *logrus.Logger
}

// NewResponseCache creates a response cache over the given backend.
// baseTTL is the standard-content lifetime before cost factors apply.
func NewResponseCache(store Store, baseTTL time.Duration) *ResponseCache {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &ResponseCache{
		store:   store,
		baseTTL: baseTTL,
		logger:  logger,
	}
}

func (c *ResponseCache) key(req Request) string {
	contentHash := fmt.Sprintf("%016x", xxhash.Sum64String(req.Prompt+":"+req.TargetLanguage))
	base := fmt.Sprintf("ai_response:v%d:%s:%s:%s:%s",
		cacheVersion, req.Provider, req.Model, req.TargetLanguage, contentHash)
	if req.Collection != "" {
		return base + ":collection:" + req.Collection
	}
	return base
}

// TTL computes the lifetime for a response:
// base × content-type factor × provider cost factor × clamped confidence.
func (c *ResponseCache) TTL(contentType, provider, model string, confidence float64) time.Duration {
	contentFactor, ok := contentTypeFactors[strings.ToLower(contentType)]
	if !ok {
		contentFactor = 1.0
	}

	tier := "medium"
	if models, ok := providerCostTiers[provider]; ok {
		if t, ok := models[model]; ok {
			tier = t
		}
	}
	tierFactor := tierFactors[tier]

	confidenceFactor := confidence
	if confidenceFactor < 0.5 {
		confidenceFactor = 0.5
	}
	if confidenceFactor > 1.5 {
		confidenceFactor = 1.5
	}

	return time.Duration(float64(c.baseTTL) * contentFactor * tierFactor * confidenceFactor)
}

// Get returns a previously cached response. Backend errors and decompression
// anomalies degrade to a miss or raw passthrough, never to a failure.
func (c *ResponseCache) Get(ctx context.Context, req Request) (string, bool) {
	raw, found, err := c.store.Get(ctx, c.key(req))
	if err != nil {
		c.logger.WithError(err).Warn("Response cache read failed, treating as miss")
		return "", false
	}
	if !found {
		responseCacheMisses.WithLabelValues(req.Provider, req.Model).Inc()
		_, _ = c.store.Incr(ctx, statsKey(req.Provider, req.Model, "misses"))
		return "", false
	}

	responseCacheHits.WithLabelValues(req.Provider, req.Model).Inc()
	_, _ = c.store.Incr(ctx, statsKey(req.Provider, req.Model, "hits"))

	return decompress(raw), true
}

// Put caches a response with a cost-aware TTL, compressing large values.
func (c *ResponseCache) Put(ctx context.Context, req Request, response, contentType string, confidence float64) bool {
	ttl := c.TTL(contentType, req.Provider, req.Model, confidence)

	payload := []byte(response)
	if len(payload) > compressionThreshold {
		payload = compress(payload)
	}

	if err := c.store.Set(ctx, c.key(req), payload, ttl); err != nil {
		c.logger.WithError(err).Warn("Response cache write failed")
		return false
	}
	return true
}

// Invalidate deletes cached responses matching the filter.
func (c *ResponseCache) Invalidate(ctx context.Context, filter InvalidationFilter) (int, error) {
	wildcard := func(s string) string {
		if s == "" {
			return "*"
		}
		return s
	}

	pattern := fmt.Sprintf("ai_response:v%d:%s:%s:%s:*",
		cacheVersion, wildcard(filter.Provider), wildcard(filter.Model), wildcard(filter.Language))
	if filter.Collection != "" {
		pattern += ":collection:" + filter.Collection
	}

	deleted, err := c.store.DeletePattern(ctx, pattern)
	if err != nil {
		c.logger.WithError(err).Warn("Response cache invalidation failed")
		return 0, err
	}
	c.logger.WithFields(logrus.Fields{"pattern": pattern, "deleted": deleted}).
		Info("Invalidated cached responses")
	return deleted, nil
}

// Flush removes every cached response and the hit/miss counters.
func (c *ResponseCache) Flush(ctx context.Context) (int, error) {
	deleted, err := c.store.DeletePattern(ctx, fmt.Sprintf("ai_response:v%d:*", cacheVersion))
	if err != nil {
		return 0, err
	}
	if n, err := c.store.DeletePattern(ctx, "cache_stats:*"); err == nil {
		deleted += n
	}
	return deleted, nil
}

// Stats reports hit/miss counters for a provider/model pair.
func (c *ResponseCache) Stats(ctx context.Context, provider, model string) (hits, misses int64) {
	hits = readCounter(ctx, c.store, statsKey(provider, model, "hits"))
	misses = readCounter(ctx, c.store, statsKey(provider, model, "misses"))
	return hits, misses
}

func statsKey(provider, model, kind string) string {
	return fmt.Sprintf("cache_stats:%s:%s:%s", provider, model, kind)
}

func readCounter(ctx context.Context, store Store, key string) int64 {
	raw, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return 0
	}
	n, _ := strconv.ParseInt(string(raw), 10, 64)
	return n
}

func compress(data []byte) []byte {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, 6)
	if err != nil {
		return data
	}
	if _, err := w.Write(data); err != nil {
		return data
	}
	if err := w.Close(); err != nil {
		return data
	}
	return buf.Bytes()
}

// decompress inflates zlib-compressed payloads; anything that does not
// inflate is assumed to be raw text stored below the threshold.
func decompress(data []byte) string {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return string(data)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return string(data)
	}
	return string(out)
}
