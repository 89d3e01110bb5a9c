package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published pipeline events.
const (
	EventTypeSearchCompleted = "papers.search_completed"
)

// Event is an envelope for a pipeline event published to the event stream.
type Event struct {
	EventID      string          `json:"event_id"`
	EventVersion int             `json:"event_version"`
	EventType    string          `json:"event_type"`
	Key          string          `json:"key"`
	Payload      json.RawMessage `json:"payload"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewEvent creates a new event with the given type and partition key.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, key string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:      uuid.New().String(),
		EventVersion: 1,
		EventType:    eventType,
		Key:          key,
		Payload:      payloadBytes,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// WithMetadata sets the metadata on the event.
func (e *Event) WithMetadata(metadata map[string]any) *Event {
	e.Metadata = metadata
	return e
}

// SearchCompletedPayload is the payload for papers.search_completed events.
type SearchCompletedPayload struct {
	SearchID       string        `json:"search_id"`
	Query          string        `json:"query"`
	Limit          int           `json:"limit"`
	Total          int           `json:"total"`
	Returned       int           `json:"returned"`
	Sources        []SourceType  `json:"sources"`
	FiltersApplied SearchFilters `json:"filters_applied"`
	SearchTimeMs   int64         `json:"search_time_ms"`
}
