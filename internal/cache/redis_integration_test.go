//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joseph-ayodele/text-extractor/internal/common"
)

func TestRedisBackend(t *testing.T) {
	ctx := context.Background()
	container, err := redis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	store, err := Open(ctx, common.CacheConfig{
		Driver: "redis",
		Redis:  common.RedisConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port()), Prefix: "test:"},
	}, nil, discardLogger())
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.Read(ctx, "a.pdf")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, Entry{SourcePath: "a.pdf", Text: "cached"}))
	require.NoError(t, store.Put(ctx, Entry{SourcePath: "b.pdf", Failure: "boom"}))

	e, ok := store.Read(ctx, "a.pdf")
	require.True(t, ok)
	assert.Equal(t, "cached", e.Text)

	n := 0
	require.NoError(t, store.List(ctx, func(string, Entry) error { n++; return nil }))
	assert.Equal(t, 2, n)
}
