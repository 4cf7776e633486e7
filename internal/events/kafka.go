package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	EventTypePlaylistCreated EventType = "playlist_created"
	EventTypePlaylistUpdated EventType = "playlist_updated"
	EventTypePlaylistDeleted EventType = "playlist_deleted"
	EventTypeDraftsReaped    EventType = "drafts_reaped"
	EventTypeTrackPlayed     EventType = "track_played"
	EventTypeChartRefreshed  EventType = "chart_refreshed"
)

type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Subject   string          `json:"subject,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Publisher writes playlist activity events to Kafka. A nil Publisher is a
// valid no-op, so call sites do not need to care whether eventing is
// configured.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish emits one event. Payload may be nil.
func (p *Publisher) Publish(ctx context.Context, eventType EventType, subject string, payload interface{}) {
	if p == nil {
		return
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			slog.Error("marshal event payload", "type", eventType, "err", err)
			return
		}
		event.Payload = raw
	}

	value, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal event", "type", eventType, "err", err)
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(subject),
		Value: value,
	})
	if err != nil {
		slog.Error("publish event", "type", eventType, "subject", subject, "err", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
