package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// MessageReader is the subset of *kafka.Reader used by Listener.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler processes a decoded event. Errors are logged and the listener
// moves on to the next message.
type Handler func(ctx context.Context, event domain.Event) error

// ListenerConfig holds configuration for the event listener.
type ListenerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic to consume.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
}

// Listener consumes pipeline events from Kafka.
type Listener struct {
	reader MessageReader
	logger zerolog.Logger
}

// NewListener creates a listener backed by a kafka.Reader.
func NewListener(cfg ListenerConfig, logger zerolog.Logger) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return NewListenerWithReader(reader, logger)
}

// NewListenerWithReader creates a listener over an existing reader.
func NewListenerWithReader(reader MessageReader, logger zerolog.Logger) *Listener {
	return &Listener{
		reader: reader,
		logger: logger.With().Str("component", "event_listener").Logger(),
	}
}

// Run reads messages and passes decoded events to handle. Blocks until
// context is cancelled.
func (l *Listener) Run(ctx context.Context, handle Handler) error {
	l.logger.Info().Msg("starting event listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("event listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		var event domain.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.logger.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("failed to unmarshal event")
			continue
		}

		if err := handle(ctx, event); err != nil {
			l.logger.Error().Err(err).
				Str("event_id", event.EventID).
				Str("event_type", event.EventType).
				Msg("failed to handle event")
		}
	}
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing event listener")
	return l.reader.Close()
}
