package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limitedRequest(t *testing.T, handler http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_AllowsWithinBudget(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Enabled:   true,
		PerMinute: 3,
		PerHour:   100,
	}, cache.NewMemoryClient(100), observability.DefaultLogger())
	handler := mw(okHandler())

	for i := 0; i < 3; i++ {
		rec := limitedRequest(t, handler, "/api/v1/chat", "1.2.3.4:5000")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_BlocksOverBudget(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Enabled:   true,
		PerMinute: 2,
		PerHour:   100,
	}, cache.NewMemoryClient(100), observability.DefaultLogger())
	handler := mw(okHandler())

	limitedRequest(t, handler, "/api/v1/chat", "1.2.3.4:5000")
	limitedRequest(t, handler, "/api/v1/chat", "1.2.3.4:5000")

	rec := limitedRequest(t, handler, "/api/v1/chat", "1.2.3.4:5000")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
	assert.Contains(t, rec.Body.String(), "retry_after")
}

func TestRateLimit_SeparatesClients(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Enabled:   true,
		PerMinute: 1,
		PerHour:   100,
	}, cache.NewMemoryClient(100), observability.DefaultLogger())
	handler := mw(okHandler())

	require.Equal(t, http.StatusOK, limitedRequest(t, handler, "/", "1.2.3.4:5000").Code)
	require.Equal(t, http.StatusTooManyRequests, limitedRequest(t, handler, "/", "1.2.3.4:5000").Code)

	// A different client has its own budget.
	assert.Equal(t, http.StatusOK, limitedRequest(t, handler, "/", "5.6.7.8:5000").Code)
}

func TestRateLimit_HourBudget(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Enabled:   true,
		PerMinute: 100,
		PerHour:   2,
	}, cache.NewMemoryClient(100), observability.DefaultLogger())
	handler := mw(okHandler())

	limitedRequest(t, handler, "/", "1.2.3.4:5000")
	limitedRequest(t, handler, "/", "1.2.3.4:5000")

	rec := limitedRequest(t, handler, "/", "1.2.3.4:5000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimit_SkipsConfiguredPaths(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Enabled:   true,
		PerMinute: 1,
		PerHour:   1,
		SkipPaths: []string{"/health"},
	}, cache.NewMemoryClient(100), observability.DefaultLogger())
	handler := mw(okHandler())

	for i := 0; i < 5; i++ {
		rec := limitedRequest(t, handler, "/health", "1.2.3.4:5000")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Enabled:   false,
		PerMinute: 1,
	}, cache.NewMemoryClient(100), observability.DefaultLogger())
	handler := mw(okHandler())

	for i := 0; i < 5; i++ {
		rec := limitedRequest(t, handler, "/", "1.2.3.4:5000")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}
