package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func memoryConfig(t *testing.T) config.Server {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	return config.FromEnv()
}

func TestNewInMemory(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Outbox)
	assert.NotNil(t, a.Tx)
	assert.NoError(t, a.Health(context.Background()))
	assert.ErrorContains(t, a.RequireDatabase(), "DATABASE_URL")
}

func TestNewRejectsUnreachableDatabase(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.DatabaseURL = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	assert.Error(t, err)
}
