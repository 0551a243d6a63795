//go:build integration

package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/pkg/testutil/containers"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	rd := containers.NewRedis(t)
	store := NewRedisStore(rd.Client.Client)
	ctx := context.Background()

	got, err := store.Get(ctx, "login:admin")
	require.NoError(t, err)
	assert.Nil(t, got)

	locked := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, store.Put(ctx, "login:admin", &Record{Failures: 5, LockedUntil: locked}, time.Minute))

	got, err = store.Get(ctx, "login:admin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Failures)
	assert.True(t, locked.Equal(got.LockedUntil))

	ttl, err := rd.Client.TTL(ctx, redisPrefix+"login:admin").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, "login:admin"))
	got, err = store.Get(ctx, "login:admin")
	require.NoError(t, err)
	assert.Nil(t, got)
}
