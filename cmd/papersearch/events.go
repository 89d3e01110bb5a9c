package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/events"
)

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect search events published to Kafka",
	}
	cmd.AddCommand(newEventsTailCmd(a))
	return cmd
}

func newEventsTailCmd(a *app) *cobra.Command {
	var (
		brokers []string
		topic   string
		group   string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream search-completed events until interrupted",
		Example: `  papersearch events tail --brokers localhost:9092
  papersearch events tail -o json | jq .payload.total`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(brokers) == 0 {
				brokers = a.cfg.Kafka.Brokers
			}
			if topic == "" {
				topic = a.cfg.Kafka.Topic
			}
			if len(brokers) == 0 || topic == "" {
				return fmt.Errorf("kafka brokers and topic are required: set kafka.brokers and kafka.topic or pass --brokers and --topic")
			}

			listener := events.NewListener(events.ListenerConfig{
				Brokers: brokers,
				Topic:   topic,
				GroupID: group,
			}, a.logger)
			defer listener.Close()

			err := listener.Run(cmd.Context(), a.printEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&brokers, "brokers", nil, "Kafka broker addresses (default from config)")
	f.StringVar(&topic, "topic", "", "Kafka topic (default from config)")
	f.StringVar(&group, "group", "papersearch-tail", "consumer group ID")
	return cmd
}

// printEvent writes one event per line in JSON mode and a summary line
// otherwise.
func (a *app) printEvent(_ context.Context, event domain.Event) error {
	switch a.output {
	case outputJSON:
		return json.NewEncoder(a.out).Encode(event)
	case outputYAML:
		return writeYAML(a.out, []domain.Event{event})
	}

	summary := ""
	if event.EventType == domain.EventTypeSearchCompleted {
		var payload domain.SearchCompletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			summary = fmt.Sprintf("query=%q total=%d returned=%d %dms",
				payload.Query, payload.Total, payload.Returned, payload.SearchTimeMs)
		}
	}
	_, err := fmt.Fprintf(a.out, "%s  %-28s %-36s %s\n",
		event.CreatedAt.Format(time.RFC3339), event.EventType, event.Key, summary)
	return err
}
