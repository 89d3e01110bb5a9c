package repository

import (
	"context"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// SearchHistoryRepository stores completed searches.
type SearchHistoryRepository interface {
	// Record inserts a completed search. Recording the same search ID twice
	// is a no-op and reports false, so redelivered events are harmless.
	Record(ctx context.Context, record *domain.SearchRecord) (bool, error)

	// Get returns a search by ID or domain.ErrNotFound.
	Get(ctx context.Context, searchID string) (*domain.SearchRecord, error)

	// List returns searches newest first and the total matching count.
	List(ctx context.Context, filter SearchHistoryFilter) ([]*domain.SearchRecord, int64, error)
}

// SearchHistoryFilter narrows a history listing.
type SearchHistoryFilter struct {
	// Query matches searches whose query contains this text, case-insensitively.
	Query string

	CompletedAfter  *time.Time
	CompletedBefore *time.Time

	// Limit defaults to 50 and is capped at 500.
	Limit  int
	Offset int
}

// Validate applies defaults and rejects inverted time ranges.
func (f *SearchHistoryFilter) Validate() error {
	if f.CompletedAfter != nil && f.CompletedBefore != nil && f.CompletedAfter.After(*f.CompletedBefore) {
		return domain.NewValidationError("completed_after", "must not be after completed_before")
	}

	if f.Limit <= 0 {
		f.Limit = defaultHistoryLimit
	}
	if f.Limit > maxHistoryLimit {
		f.Limit = maxHistoryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return nil
}
