package feed

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestRedis starts a redis container and returns a connected client.
// Skips the test if Docker is not available
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb, err := ConnectRedis(ctx, endpoint, "", 0)
	require.NoError(t, err)

	cleanup := func() {
		_ = rdb.Close()
		_ = container.Terminate(ctx)
	}
	return rdb, cleanup
}

func TestCachedSource_NoRedisCoalescesOnly(t *testing.T) {
	srv := newFakeFeedServer()
	defer srv.Close()
	srv.delay.Store(int64(100 * time.Millisecond))

	cached := NewCachedSource(NewClient(srv.URL(), time.Second), nil, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, err := cached.Events(context.Background(), nfl)
			assert.NoError(t, err)
			assert.Len(t, events, 2)
		}()
	}
	wg.Wait()

	// Concurrent callers share in-flight fetches.
	assert.Less(t, srv.hits.Load(), int64(5))
	require.NoError(t, cached.Invalidate(context.Background(), nfl))
}

func TestCachedSource_UnreachableRedisFallsThrough(t *testing.T) {
	srv := newFakeFeedServer()
	defer srv.Close()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()

	cached := NewCachedSource(NewClient(srv.URL(), time.Second), rdb, time.Minute)
	teams, err := cached.Teams(context.Background(), nfl)
	require.NoError(t, err)
	assert.Len(t, teams, 2)
}

func TestCachedSource_UpstreamErrorNotCached(t *testing.T) {
	srv := newFakeFeedServer()
	defer srv.Close()

	cached := NewCachedSource(NewClient(srv.URL(), time.Second), nil, 0)
	_, err := cached.Events(context.Background(), nhl)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestCachedSource_Redis(t *testing.T) {
	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	srv := newFakeFeedServer()
	defer srv.Close()

	ctx := context.Background()
	cached := NewCachedSource(NewClient(srv.URL(), time.Second), rdb, time.Minute)

	first, err := cached.Events(ctx, nfl)
	require.NoError(t, err)
	hits := srv.hits.Load()

	second, err := cached.Events(ctx, nfl)
	require.NoError(t, err)
	assert.Equal(t, hits, srv.hits.Load(), "second read should be served from redis")
	assert.Equal(t, first, second)

	ttl, err := rdb.TTL(ctx, "feed:NFL:events").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cached.Invalidate(ctx, nfl))
	_, err = cached.Events(ctx, nfl)
	require.NoError(t, err)
	assert.Greater(t, srv.hits.Load(), hits)
}
