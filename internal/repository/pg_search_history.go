package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Compile-time interface verification.
var _ SearchHistoryRepository = (*PgSearchHistoryRepository)(nil)

const searchHistoryColumns = `search_id, event_id, request_id, query, result_limit,
			total, returned, sources, filters_applied, search_time_ms, completed_at`

// PgSearchHistoryRepository is a PostgreSQL implementation of SearchHistoryRepository.
type PgSearchHistoryRepository struct {
	db DBTX
}

// NewPgSearchHistoryRepository creates a new PostgreSQL search history repository.
func NewPgSearchHistoryRepository(db DBTX) *PgSearchHistoryRepository {
	return &PgSearchHistoryRepository{db: db}
}

// Record inserts a completed search, ignoring duplicates by search ID.
func (r *PgSearchHistoryRepository) Record(ctx context.Context, record *domain.SearchRecord) (bool, error) {
	if record == nil {
		return false, domain.NewValidationError("record", "record cannot be nil")
	}
	if record.SearchID == "" {
		return false, domain.NewValidationError("search_id", "search ID is required")
	}

	sourcesJSON, err := json.Marshal(record.Sources)
	if err != nil {
		return false, fmt.Errorf("failed to marshal sources: %w", err)
	}
	filtersJSON, err := json.Marshal(record.FiltersApplied)
	if err != nil {
		return false, fmt.Errorf("failed to marshal filters: %w", err)
	}

	query := `
		INSERT INTO search_history (
			search_id, event_id, request_id, query, result_limit,
			total, returned, sources, filters_applied, search_time_ms, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (search_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		record.SearchID, record.EventID, nullString(record.RequestID), record.Query, record.Limit,
		record.Total, record.Returned, sourcesJSON, filtersJSON, record.SearchTimeMs, record.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record search: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get retrieves a completed search by ID.
func (r *PgSearchHistoryRepository) Get(ctx context.Context, searchID string) (*domain.SearchRecord, error) {
	query := `SELECT ` + searchHistoryColumns + ` FROM search_history WHERE search_id = $1`

	record, err := scanSearchRecord(r.db.QueryRow(ctx, query, searchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("search", searchID)
		}
		return nil, fmt.Errorf("failed to get search: %w", err)
	}
	return record, nil
}

// List retrieves completed searches matching the filter, newest first.
func (r *PgSearchHistoryRepository) List(ctx context.Context, filter SearchHistoryFilter) ([]*domain.SearchRecord, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []any
	argIndex := 1

	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf("lower(query) LIKE $%d", argIndex))
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
		argIndex++
	}
	if filter.CompletedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("completed_at >= $%d", argIndex))
		args = append(args, *filter.CompletedAfter)
		argIndex++
	}
	if filter.CompletedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("completed_at < $%d", argIndex))
		args = append(args, *filter.CompletedBefore)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM search_history %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count searches: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM search_history
		%s
		ORDER BY completed_at DESC
		LIMIT $%d OFFSET $%d`, searchHistoryColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.SearchRecord, 0, filter.Limit)
	for rows.Next() {
		record, err := scanSearchRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan search: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating searches: %w", err)
	}

	return records, total, nil
}

func scanSearchRecord(row pgx.Row) (*domain.SearchRecord, error) {
	var (
		record      domain.SearchRecord
		requestID   *string
		sourcesJSON []byte
		filtersJSON []byte
	)
	err := row.Scan(
		&record.SearchID, &record.EventID, &requestID, &record.Query, &record.Limit,
		&record.Total, &record.Returned, &sourcesJSON, &filtersJSON, &record.SearchTimeMs, &record.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if requestID != nil {
		record.RequestID = *requestID
	}
	record.Sources = []domain.SourceType{}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &record.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
	}
	if len(filtersJSON) > 0 {
		if err := json.Unmarshal(filtersJSON, &record.FiltersApplied); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filters: %w", err)
		}
	}
	record.CompletedAt = record.CompletedAt.UTC()
	return &record, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
