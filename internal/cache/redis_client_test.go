package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMemoryClientGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(100)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "greeting", []byte("hello"), time.Minute))

	val, err := c.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), val)
}

func TestMemoryClientExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(100)

	require.NoError(t, c.Set(ctx, "ephemeral", []byte("x"), -time.Second))

	_, err := c.Get(ctx, "ephemeral")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(100)

	require.NoError(t, c.Set(ctx, "outlets:one", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "outlets:two", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "products:one", []byte("3"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, "outlets:"))

	_, err := c.Get(ctx, "outlets:one")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "outlets:two")
	assert.ErrorIs(t, err, ErrCacheMiss)

	val, err := c.Get(ctx, "products:one")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), val)
}

func TestMemoryClientIncrement(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(100)

	n, err := c.Increment(ctx, "rl:1.2.3.4:minute", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Increment(ctx, "rl:1.2.3.4:minute", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Increment(ctx, "rl:5.6.7.8:minute", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counters are independent per key")
}

func TestMemoryClientIncrementResetsExpiredWindow(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(100)

	_, err := c.Increment(ctx, "rl:window", -time.Second)
	require.NoError(t, err)

	n, err := c.Increment(ctx, "rl:window", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired window restarts at 1")
}

func TestMemoryClientEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)

	require.NoError(t, c.Set(ctx, "a", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("b"), 2*time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("c"), 3*time.Minute))

	// "a" had the earliest expiry and should be gone
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestCacheKeyHelpers(t *testing.T) {
	assert.Equal(t, "a:b:c", CacheKey("a", "b", "c"))
	assert.Equal(t, "s:session_ab12:history", SessionCacheKey("session_ab12", "history"))
	assert.Equal(t, "rl:10.0.0.1:minute", RateLimitKey("10.0.0.1", "minute"))
}

func TestRedisClientIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if !isDockerAvailable() {
		t.Skip("Docker not available")
	}

	ctx := context.Background()

	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(RedisConfig{
		Addr: host + ":" + port.Port(),
	})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))
	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	_, err = client.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)

	n, err := client.Increment(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = client.Increment(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, client.Set(ctx, "pfx:a", []byte("1"), time.Minute))
	require.NoError(t, client.Set(ctx, "pfx:b", []byte("2"), time.Minute))
	require.NoError(t, client.DeleteByPrefix(ctx, "pfx:"))
	_, err = client.Get(ctx, "pfx:a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

// isDockerAvailable checks if Docker is available for testing.
func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.Client().Ping(ctx)
	return err == nil
}
