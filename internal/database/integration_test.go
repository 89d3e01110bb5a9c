//go:build integration

package database_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/paper-discovery-service/internal/cache"
	"github.com/helixir/paper-discovery-service/internal/config"
	"github.com/helixir/paper-discovery-service/internal/database"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/repository"
)

// startPostgres runs a disposable PostgreSQL container, applies the embedded
// migrations and returns a connected pool.
func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("paper_discovery_test"),
		tcpostgres.WithUsername("paperdiscovery"),
		tcpostgres.WithPassword("testpassword"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:           host,
		Port:           portNum,
		User:           "paperdiscovery",
		Password:       "testpassword",
		Name:           "paper_discovery_test",
		SSLMode:        config.SSLModeDisable,
		MaxConns:       4,
		MinConns:       1,
		ConnectTimeout: 10 * time.Second,
	}

	db, err := database.New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	migrator, err := database.NewMigrator(db, "", zerolog.Nop())
	require.NoError(t, err)
	defer migrator.Close()
	require.NoError(t, migrator.Up())

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	return db
}

func TestIntegration_PostgresCache(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	assert.Equal(t, "healthy", db.Health(ctx).Status)

	backend := cache.NewPostgresBackend(db)
	now := time.Now().UTC()

	require.NoError(t, backend.Set(ctx, "s2:citation:doi:10.1/live", cache.Entry{Value: []byte(`{"paper_id":"a"}`), ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, backend.Set(ctx, "s2:citation:doi:10.1/stale", cache.Entry{Value: []byte(`null`), ExpiresAt: now.Add(-time.Hour)}))

	entry, ok, err := backend.Get(ctx, "s2:citation:doi:10.1/live")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"paper_id":"a"}`, string(entry.Value))

	purged, err := backend.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, ok, err = backend.Get(ctx, "s2:citation:doi:10.1/stale")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntegration_SearchHistory(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	repo := repository.NewPgSearchHistoryRepository(db)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, query := range []string{"CRISPR off-target", "crispr delivery", "protein folding"} {
		inserted, err := repo.Record(ctx, &domain.SearchRecord{
			SearchID:    "search-" + strconv.Itoa(i),
			EventID:     "event-" + strconv.Itoa(i),
			Query:       query,
			Limit:       20,
			Total:       10 + i,
			Returned:    10,
			Sources:     []domain.SourceType{domain.SourceTypeOpenAlex},
			CompletedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	inserted, err := repo.Record(ctx, &domain.SearchRecord{SearchID: "search-0", EventID: "event-redelivered", Query: "x", CompletedAt: base})
	require.NoError(t, err)
	assert.False(t, inserted, "redelivered event is ignored")

	got, err := repo.Get(ctx, "search-1")
	require.NoError(t, err)
	assert.Equal(t, "crispr delivery", got.Query)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeOpenAlex}, got.Sources)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records, total, err := repo.List(ctx, repository.SearchHistoryFilter{Query: "crispr"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, records, 2)
	assert.Equal(t, "search-1", records[0].SearchID, "newest first")
	assert.Equal(t, "search-0", records[1].SearchID)
}
