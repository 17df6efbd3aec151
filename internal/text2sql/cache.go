package text2sql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
)

// QueryResult is the executed outcome of one translated outlet question.
// Row queries carry the matching outlets; count queries carry only Count.
type QueryResult struct {
	Translation Translation      `json:"translation"`
	Outlets     []storage.Outlet `json:"outlets,omitempty"`
	Count       int              `json:"count"`
	LatencyMs   int64            `json:"latency_ms"`
	Cached      bool             `json:"cached"`
}

// QueryCache caches executed outlet query results keyed by the normalized
// utterance, so repeated questions skip translation and execution entirely.
type QueryCache struct {
	client cache.Client
	logger *observability.Logger
	config QueryCacheConfig

	hits   atomic.Int64
	misses atomic.Int64
}

// QueryCacheConfig configures the query result cache.
type QueryCacheConfig struct {
	// DefaultTTL is the TTL for most query results.
	DefaultTTL time.Duration
	// ListingTTL is the TTL for the full outlet listing, which changes
	// only when outlets are reseeded.
	ListingTTL time.Duration
	// KeyPrefix is the cache key prefix.
	KeyPrefix string
	// Enabled controls whether caching is active.
	Enabled bool
}

// DefaultQueryCacheConfig returns default cache configuration.
func DefaultQueryCacheConfig() QueryCacheConfig {
	return QueryCacheConfig{
		DefaultTTL: 5 * time.Minute,
		ListingTTL: 15 * time.Minute,
		KeyPrefix:  "text2sql:answer:",
		Enabled:    true,
	}
}

// NewQueryCache creates a query result cache.
func NewQueryCache(client cache.Client, logger *observability.Logger, config QueryCacheConfig) *QueryCache {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "text2sql:answer:"
	}
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.ListingTTL == 0 {
		config.ListingTTL = config.DefaultTTL
	}

	return &QueryCache{
		client: client,
		logger: logger,
		config: config,
	}
}

// CacheKey generates a deterministic key for an utterance. Case and
// surrounding whitespace do not affect the key, matching the normalization
// the translator applies.
func (c *QueryCache) CacheKey(utterance string) string {
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	hash := sha256.Sum256([]byte(normalized))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:16])
}

// cachedResult wraps a result with cache bookkeeping.
type cachedResult struct {
	Result    *QueryResult `json:"result"`
	CachedAt  time.Time    `json:"cached_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Get retrieves a cached result if one is available and fresh.
func (c *QueryCache) Get(ctx context.Context, utterance string) (*QueryResult, bool) {
	if !c.config.Enabled || c.client == nil {
		return nil, false
	}

	key := c.CacheKey(utterance)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			c.logger.Debug().Err(err).Str("key", key).Msg("Cache get error")
		}
		c.misses.Add(1)
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached result")
		c.misses.Add(1)
		return nil, false
	}

	if time.Now().After(cached.ExpiresAt) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	c.logger.Debug().Str("key", key).Msg("Query cache hit")
	return cached.Result, true
}

// Set caches an executed query result.
func (c *QueryCache) Set(ctx context.Context, utterance string, result *QueryResult) error {
	if !c.config.Enabled || c.client == nil {
		return nil
	}

	key := c.CacheKey(utterance)
	ttl := c.ttlFor(result)

	cached := cachedResult{
		Result:    result,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal query result: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache query result")
		return err
	}

	c.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached query result")
	return nil
}

// Invalidate drops every cached result. Called after outlets are reseeded.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if !c.config.Enabled || c.client == nil {
		return nil
	}

	c.logger.Info().Msg("Invalidating query cache")
	return c.client.DeleteByPrefix(ctx, c.config.KeyPrefix)
}

// ttlFor picks a TTL based on how stable the result is.
func (c *QueryCache) ttlFor(result *QueryResult) time.Duration {
	if result.Translation.QueryType == QueryTypeAll {
		return c.config.ListingTTL
	}
	return c.config.DefaultTTL
}

// Stats reports hit and miss counters for the monitoring endpoints.
func (c *QueryCache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	stats := CacheStats{
		Enabled: c.config.Enabled,
		Hits:    hits,
		Misses:  misses,
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// CacheStats contains query cache counters.
type CacheStats struct {
	Enabled bool    `json:"enabled"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}
