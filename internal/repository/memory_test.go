package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	require.NoError(t, repo.SetCached(ctx, "parts", []byte("data"), time.Minute))

	got, err := repo.GetCached(ctx, "parts")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)

	require.NoError(t, repo.Invalidate(ctx, "parts"))
	got, err = repo.GetCached(ctx, "parts")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	require.NoError(t, repo.SetCached(ctx, "short", []byte("x"), -time.Second))

	got, err := repo.GetCached(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryRateLimit(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	allowedCount := 0
	for i := 0; i < 10; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "user:1", 3, time.Minute)
		require.NoError(t, err)
		if allowed {
			allowedCount++
		}
	}
	assert.Equal(t, 3, allowedCount, "burst should cap at the limit")

	// A different key has its own budget.
	allowed, err := repo.CheckRateLimit(ctx, "user:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
