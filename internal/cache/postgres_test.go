package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresBackend_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored entry", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		exp := time.Now().Add(time.Hour).UTC()
		mock.ExpectQuery("SELECT value, expires_at FROM cache_entries").
			WithArgs("ns/a").
			WillReturnRows(pgxmock.NewRows([]string{"value", "expires_at"}).AddRow([]byte("v"), exp))

		b := NewPostgresBackend(mock)
		got, ok, err := b.Get(ctx, "ns/a")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("v"), got.Value)
		assert.Equal(t, exp, got.ExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows is a miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT value, expires_at FROM cache_entries").
			WithArgs("ns/a").
			WillReturnError(pgx.ErrNoRows)

		b := NewPostgresBackend(mock)
		_, ok, err := b.Get(ctx, "ns/a")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error is returned", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT value, expires_at FROM cache_entries").
			WithArgs("ns/a").
			WillReturnError(errors.New("connection reset"))

		b := NewPostgresBackend(mock)
		_, ok, err := b.Get(ctx, "ns/a")
		require.Error(t, err)
		assert.False(t, ok)
		assert.Contains(t, err.Error(), "get cache entry")
	})
}

func TestPostgresBackend_Set(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts entry", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		exp := time.Now().Add(time.Hour)
		mock.ExpectExec("INSERT INTO cache_entries").
			WithArgs("ns/a", []byte("v"), exp).
			WillReturnResult(pgconn.NewCommandTag("INSERT 0 1"))

		b := NewPostgresBackend(mock)
		require.NoError(t, b.Set(ctx, "ns/a", Entry{Value: []byte("v"), ExpiresAt: exp}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error is returned", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO cache_entries").
			WithArgs("ns/a", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("disk full"))

		b := NewPostgresBackend(mock)
		err = b.Set(ctx, "ns/a", Entry{Value: []byte("v"), ExpiresAt: time.Now()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "set cache entry")
	})
}

func TestPostgresBackend_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectExec("DELETE FROM cache_entries").
		WithArgs(now).
		WillReturnResult(pgconn.NewCommandTag("DELETE 3"))

	b := NewPostgresBackend(mock)
	n, err := b.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
