package text2sql

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
)

func newTestQueryCache(t *testing.T) *QueryCache {
	t.Helper()

	logger := observability.DefaultLogger()
	return NewQueryCache(cache.NewMemoryClient(100), logger, DefaultQueryCacheConfig())
}

func TestQueryCache_CacheKey_Deterministic(t *testing.T) {
	qc := newTestQueryCache(t)

	key := qc.CacheKey("outlets in PJ")

	assert.Equal(t, key, qc.CacheKey("outlets in PJ"))
	assert.Equal(t, key, qc.CacheKey("  OUTLETS IN PJ  "))
	assert.NotEqual(t, key, qc.CacheKey("outlets in KL"))
	assert.True(t, strings.HasPrefix(key, "text2sql:answer:"))
}

func TestQueryCache_SetGet(t *testing.T) {
	qc := newTestQueryCache(t)
	ctx := context.Background()

	result := &QueryResult{
		Translation: Translation{
			SQL:       "SELECT * FROM outlets ORDER BY state, city, outlet_name",
			QueryType: QueryTypeAll,
			Valid:     true,
		},
		Count: 3,
	}

	_, ok := qc.Get(ctx, "show all outlets")
	assert.False(t, ok)

	require.NoError(t, qc.Set(ctx, "show all outlets", result))

	got, ok := qc.Get(ctx, "show all outlets")
	require.True(t, ok)
	assert.Equal(t, QueryTypeAll, got.Translation.QueryType)
	assert.Equal(t, 3, got.Count)

	// Normalization means the same question in different case hits too.
	got, ok = qc.Get(ctx, "SHOW ALL OUTLETS")
	require.True(t, ok)
	assert.Equal(t, 3, got.Count)
}

func TestQueryCache_Invalidate(t *testing.T) {
	qc := newTestQueryCache(t)
	ctx := context.Background()

	result := &QueryResult{
		Translation: Translation{QueryType: QueryTypeAll, Valid: true},
		Count:       1,
	}
	require.NoError(t, qc.Set(ctx, "show all outlets", result))

	require.NoError(t, qc.Invalidate(ctx))

	_, ok := qc.Get(ctx, "show all outlets")
	assert.False(t, ok)
}

func TestQueryCache_Disabled(t *testing.T) {
	logger := observability.DefaultLogger()
	cfg := DefaultQueryCacheConfig()
	cfg.Enabled = false
	qc := NewQueryCache(cache.NewMemoryClient(100), logger, cfg)
	ctx := context.Background()

	result := &QueryResult{Translation: Translation{QueryType: QueryTypeAll}}
	require.NoError(t, qc.Set(ctx, "show all outlets", result))

	_, ok := qc.Get(ctx, "show all outlets")
	assert.False(t, ok)
}

func TestQueryCache_Stats(t *testing.T) {
	qc := newTestQueryCache(t)
	ctx := context.Background()

	qc.Get(ctx, "miss one")
	qc.Get(ctx, "miss two")

	result := &QueryResult{Translation: Translation{QueryType: QueryTypeAll}}
	require.NoError(t, qc.Set(ctx, "hit me", result))
	_, ok := qc.Get(ctx, "hit me")
	require.True(t, ok)

	stats := qc.Stats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.InDelta(t, 1.0/3.0, stats.HitRate, 0.001)
}

func TestQueryCache_ListingTTL(t *testing.T) {
	qc := newTestQueryCache(t)

	listing := &QueryResult{Translation: Translation{QueryType: QueryTypeAll}}
	scoped := &QueryResult{Translation: Translation{QueryType: QueryTypeLocation}}

	assert.Equal(t, 15*time.Minute, qc.ttlFor(listing))
	assert.Equal(t, 5*time.Minute, qc.ttlFor(scoped))
}
