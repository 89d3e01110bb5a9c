package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSQLiteBackend_GetSet(t *testing.T) {
	ctx := context.Background()
	b := openTestSQLite(t)

	_, ok, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	exp := time.Date(2030, 1, 2, 3, 4, 5, 6, time.UTC)
	require.NoError(t, b.Set(ctx, "ns/a", Entry{Value: []byte(`{"x":1}`), ExpiresAt: exp}))

	got, ok, err := b.Get(ctx, "ns/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"x":1}`), got.Value)
	assert.True(t, exp.Equal(got.ExpiresAt))

	require.NoError(t, b.Set(ctx, "ns/a", Entry{Value: []byte("null"), ExpiresAt: exp}))
	got, _, err = b.Get(ctx, "ns/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("null"), got.Value)
}

func TestSQLiteBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	b, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "k", Entry{Value: []byte("v"), ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, b.Close())

	b, err = OpenSQLite(path)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, path, b.Path())

	got, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got.Value)
}

func TestSQLiteBackend_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	b := openTestSQLite(t)
	now := time.Now()

	require.NoError(t, b.Set(ctx, "old", Entry{Value: []byte("1"), ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, b.Set(ctx, "edge", Entry{Value: []byte("2"), ExpiresAt: now}))
	require.NoError(t, b.Set(ctx, "live", Entry{Value: []byte("3"), ExpiresAt: now.Add(time.Minute)}))

	n, err := b.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, _ := b.Get(ctx, "live")
	assert.True(t, ok)
	_, ok, _ = b.Get(ctx, "old")
	assert.False(t, ok)
}

func TestSQLiteBackend_WithAside(t *testing.T) {
	ctx := context.Background()
	b := openTestSQLite(t)
	aside := NewAside(b, zerolog.Nop())

	calls := 0
	produce := func(context.Context) ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	}

	for range 3 {
		got, err := aside.GetOrFetch(ctx, Key("s2:search", "q"), time.Hour, produce)
		require.NoError(t, err)
		assert.Equal(t, []byte("fresh"), got)
	}
	assert.Equal(t, 1, calls)
}
