package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryBackend(t *testing.T) {
	t.Run("rejects non-positive size", func(t *testing.T) {
		_, err := NewMemoryBackend(0)
		require.Error(t, err)
	})

	t.Run("creates backend", func(t *testing.T) {
		b, err := NewMemoryBackend(4)
		require.NoError(t, err)
		assert.Equal(t, 0, b.Len())
	})
}

func TestMemoryBackend_GetSet(t *testing.T) {
	ctx := context.Background()
	b, err := NewMemoryBackend(4)
	require.NoError(t, err)

	_, ok, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	exp := time.Now().Add(time.Minute)
	require.NoError(t, b.Set(ctx, "k", Entry{Value: []byte("v"), ExpiresAt: exp}))
	got, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got.Value)
	assert.Equal(t, exp, got.ExpiresAt)

	require.NoError(t, b.Set(ctx, "k", Entry{Value: []byte("v2"), ExpiresAt: exp}))
	got, _, _ = b.Get(ctx, "k")
	assert.Equal(t, []byte("v2"), got.Value)
}

func TestMemoryBackend_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	b, err := NewMemoryBackend(2)
	require.NoError(t, err)

	exp := time.Now().Add(time.Minute)
	require.NoError(t, b.Set(ctx, "a", Entry{Value: []byte("a"), ExpiresAt: exp}))
	require.NoError(t, b.Set(ctx, "b", Entry{Value: []byte("b"), ExpiresAt: exp}))

	// Touch "a" so "b" becomes the eviction candidate.
	_, _, _ = b.Get(ctx, "a")
	require.NoError(t, b.Set(ctx, "c", Entry{Value: []byte("c"), ExpiresAt: exp}))

	assert.Equal(t, 2, b.Len())
	_, ok, _ := b.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = b.Get(ctx, "a")
	assert.True(t, ok)
}
