package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
)

// RateLimitConfig holds the fixed-window budgets enforced per client IP.
type RateLimitConfig struct {
	Enabled   bool
	PerMinute int
	PerHour   int
	SkipPaths []string
}

// RateLimit returns middleware that counts requests per client in fixed
// minute and hour windows. Counters live behind cache.Client so multiple
// instances pointed at the same Redis share budgets. Counter failures
// allow the request through rather than taking the API down with the cache.
func RateLimit(cfg RateLimitConfig, counters cache.Client, logger *observability.Logger) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || counters == nil || skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			now := time.Now()
			minuteBucket := now.Unix() / 60
			hourBucket := now.Unix() / 3600

			minuteCount, err := bump(r.Context(), counters, ip, "m", minuteBucket, time.Minute)
			if err != nil {
				logger.Warn().Err(err).Str("client_ip", ip).Msg("Rate limit counter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			hourCount, err := bump(r.Context(), counters, ip, "h", hourBucket, time.Hour)
			if err != nil {
				logger.Warn().Err(err).Str("client_ip", ip).Msg("Rate limit counter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			minuteReset := (minuteBucket + 1) * 60
			hourReset := (hourBucket + 1) * 3600

			if cfg.PerMinute > 0 && minuteCount > int64(cfg.PerMinute) {
				logger.Warn().Str("client_ip", ip).Int64("count", minuteCount).Msg("Minute rate limit exceeded")
				tooManyRequests(w, cfg.PerMinute, minuteReset, now)
				return
			}
			if cfg.PerHour > 0 && hourCount > int64(cfg.PerHour) {
				logger.Warn().Str("client_ip", ip).Int64("count", hourCount).Msg("Hour rate limit exceeded")
				tooManyRequests(w, cfg.PerHour, hourReset, now)
				return
			}

			limit, remaining, reset := cfg.PerMinute, int64(cfg.PerMinute)-minuteCount, minuteReset
			if cfg.PerMinute <= 0 {
				limit, remaining, reset = cfg.PerHour, int64(cfg.PerHour)-hourCount, hourReset
			}
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

			next.ServeHTTP(w, r)
		})
	}
}

// bump increments the counter for one window. The bucket number is part of
// the key, so a stale TTL can never bleed counts into the next window.
func bump(ctx context.Context, counters cache.Client, ip, window string, bucket int64, ttl time.Duration) (int64, error) {
	key := cache.RateLimitKey(ip, window+strconv.FormatInt(bucket, 10))
	return counters.Increment(ctx, key, ttl)
}

func tooManyRequests(w http.ResponseWriter, limit int, reset int64, now time.Time) {
	retryAfter := reset - now.Unix()
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error":{"code":"rate_limited","message":"rate limit exceeded","status":429,"details":{"retry_after":%d}}}`, retryAfter)
}

// clientIP extracts the client address. RealIP middleware has already
// rewritten RemoteAddr from forwarding headers when they are present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
