package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-discovery-service/internal/database"
)

// PostgresBackend stores entries in the cache_entries table so the cache is
// shared across service replicas and survives restarts.
type PostgresBackend struct {
	db database.DBTX
}

// NewPostgresBackend creates a backend over db. The schema is managed by the
// migrations package.
func NewPostgresBackend(db database.DBTX) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Get returns the entry stored under key.
func (p *PostgresBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	query := `SELECT value, expires_at FROM cache_entries WHERE key = $1`

	var e Entry
	err := p.db.QueryRow(ctx, query, key).Scan(&e.Value, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	return e, true, nil
}

// Set upserts entry under key.
func (p *PostgresBackend) Set(ctx context.Context, key string, entry Entry) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = NOW()`

	if _, err := p.db.Exec(ctx, query, key, entry.Value, entry.ExpiresAt); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

// PurgeExpired deletes entries that expired at or before now.
func (p *PostgresBackend) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
