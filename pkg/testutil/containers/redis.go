//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/config"
	redisclient "github.com/blastheart1/signed-contract-parser-sub003/internal/platform/redis"
)

// Redis is a throwaway Redis reached through the same client the app uses.
type Redis struct {
	Container *tcredis.RedisContainer
	Config    config.RedisConfig
	Client    *redisclient.Client
}

// NewRedis starts redis:7-alpine for the lifetime of t.
func NewRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	c, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "start redis")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	url, err := c.ConnectionString(ctx)
	require.NoError(t, err)
	cfg := config.RedisConfig{URL: url, PoolSize: 4}
	client, err := redisclient.New(ctx, cfg)
	require.NoError(t, err, "connect redis")
	t.Cleanup(func() { _ = client.Close() })

	return &Redis{Container: c, Config: cfg, Client: client}
}

// Reset drops cached addendum pages and lockout records between tests.
func (r *Redis) Reset(t *testing.T) {
	t.Helper()
	require.NoError(t, r.Client.FlushDB(context.Background()).Err())
}
