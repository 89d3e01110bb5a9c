package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/repository"
)

// Search history outcomes reported to metrics.
const (
	historyRecorded  = "recorded"
	historyDuplicate = "duplicate"
	historyRejected  = "rejected"
	historyError     = "error"
)

// recorder stores search-completed events as history rows.
type recorder struct {
	repo    repository.SearchHistoryRepository
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func newRecorder(repo repository.SearchHistoryRepository, metrics *observability.Metrics, logger zerolog.Logger) *recorder {
	return &recorder{
		repo:    repo,
		metrics: metrics,
		logger:  logger.With().Str("component", "history_recorder").Logger(),
	}
}

// Handle records one event. Events of other types are skipped and malformed
// events are dropped, so neither blocks the partition.
func (r *recorder) Handle(ctx context.Context, event domain.Event) error {
	if event.EventType != domain.EventTypeSearchCompleted {
		r.logger.Debug().Str("event_type", event.EventType).Msg("skipping event")
		return nil
	}

	record, err := domain.SearchRecordFromEvent(event)
	if err != nil {
		r.metrics.RecordSearchHistory(historyRejected)
		r.logger.Warn().Err(err).Str("event_id", event.EventID).Msg("dropping malformed search event")
		return nil
	}

	inserted, err := r.repo.Record(ctx, record)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		r.metrics.RecordSearchHistory(historyError)
		return err
	}

	if !inserted {
		r.metrics.RecordSearchHistory(historyDuplicate)
		r.logger.Debug().Str("search_id", record.SearchID).Msg("search already recorded")
		return nil
	}

	r.metrics.RecordSearchHistory(historyRecorded)
	r.logger.Info().
		Str("search_id", record.SearchID).
		Str("query", record.Query).
		Int("total", record.Total).
		Msg("search recorded")
	return nil
}
