package connection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Build(t *testing.T) {
	reg := NewRegistry(nil)
	ctx := context.Background()

	_, err := reg.Build(ctx, Config{}, newFakeTransport())
	assert.ErrorIs(t, err, ErrEmptyName)

	cfg := testConfig()
	cfg.Name = "beta"
	m, err := reg.Build(ctx, cfg, newFakeTransport())
	require.NoError(t, err)
	assert.False(t, m.Running(), "StartRunning not set")

	cfg.Name = "alpha"
	cfg.StartRunning = true
	a, err := reg.Build(ctx, cfg, newFakeTransport())
	require.NoError(t, err)
	assert.True(t, a.Running())

	got, ok := reg.Get("beta")
	require.True(t, ok)
	assert.Same(t, m, got)
	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())

	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, reg.Close(closeCtx))
	assert.False(t, a.Running())
	assert.Empty(t, reg.Names())
}

func TestRegistry_BuildReplaces(t *testing.T) {
	reg := NewRegistry(nil)
	ctx := context.Background()

	cfg := testConfig()
	cfg.StartRunning = true
	cfg.AutoConnect = true

	first, err := reg.Build(ctx, cfg, newFakeTransport())
	require.NoError(t, err)
	require.Eventually(t, first.Connected, waitFor, tick)

	second, err := reg.Build(ctx, cfg, newFakeTransport())
	require.NoError(t, err)

	assert.False(t, first.Running())
	assert.False(t, first.Connected())

	got, _ := reg.Get(cfg.Name)
	assert.Same(t, second, got)

	require.NoError(t, reg.Remove(ctx, cfg.Name))
	_, ok := reg.Get(cfg.Name)
	assert.False(t, ok)
	assert.NoError(t, reg.Remove(ctx, cfg.Name), "removing an unknown name is a no-op")
}
