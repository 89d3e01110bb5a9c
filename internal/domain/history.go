package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SearchRecord is a completed aggregated search kept for history queries.
type SearchRecord struct {
	SearchID       string        `json:"search_id"`
	EventID        string        `json:"event_id"`
	RequestID      string        `json:"request_id,omitempty"`
	Query          string        `json:"query"`
	Limit          int           `json:"limit"`
	Total          int           `json:"total"`
	Returned       int           `json:"returned"`
	Sources        []SourceType  `json:"sources"`
	FiltersApplied SearchFilters `json:"filters_applied"`
	SearchTimeMs   int64         `json:"search_time_ms"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// SearchRecordFromEvent decodes a papers.search_completed event.
func SearchRecordFromEvent(e Event) (*SearchRecord, error) {
	if e.EventType != EventTypeSearchCompleted {
		return nil, NewValidationError("event_type", fmt.Sprintf("expected %s, got %q", EventTypeSearchCompleted, e.EventType))
	}

	var payload SearchCompletedPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode search completed payload: %w", err)
	}
	if payload.SearchID == "" {
		payload.SearchID = e.Key
	}
	if payload.SearchID == "" {
		return nil, NewValidationError("search_id", "search ID is required")
	}

	record := &SearchRecord{
		SearchID:       payload.SearchID,
		EventID:        e.EventID,
		Query:          payload.Query,
		Limit:          payload.Limit,
		Total:          payload.Total,
		Returned:       payload.Returned,
		Sources:        payload.Sources,
		FiltersApplied: payload.FiltersApplied,
		SearchTimeMs:   payload.SearchTimeMs,
		CompletedAt:    e.CreatedAt,
	}
	if rid, ok := e.Metadata["request_id"].(string); ok {
		record.RequestID = rid
	}
	if record.Sources == nil {
		record.Sources = []SourceType{}
	}
	return record, nil
}
