package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

// Event types.
const (
	WindowEvaluated = "window.evaluated"
	WindowRemoved   = "window.removed"
	FloorAdded      = "floor.added"
	FloorRemoved    = "floor.removed"
	FloorRenamed    = "floor.renamed"
	ProjectCleared  = "project.cleared"
	Reclassified    = "project.reclassified"
)

// Event is the JSON document written to the topic.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	FloorID     string `json:"floor_id,omitempty"`
	FloorNumber int    `json:"floor_number,omitempty"`
	WindowID    string `json:"window_id,omitempty"`

	Code         string           `json:"code,omitempty"`
	Status       tolerance.Status `json:"status,omitempty"`
	DiagonalDiff float64          `json:"diagonal_diff,omitempty"`
	Changed      int              `json:"changed,omitempty"`
}

// New returns an event of type typ stamped with a fresh id and now.
func New(typ string, now time.Time) Event {
	return Event{ID: uuid.NewString(), Type: typ, OccurredAt: now.UTC()}
}

// ForWindow returns a WindowEvaluated event for w on floor f.
func ForWindow(f registry.Floor, w registry.Window, now time.Time) Event {
	ev := New(WindowEvaluated, now)
	ev.FloorID, ev.FloorNumber = f.ID, f.Number
	ev.WindowID = w.ID
	ev.Code = w.Code
	ev.Status = w.Status
	ev.DiagonalDiff = w.DiagonalDiff
	return ev
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Multi fans every event out to each publisher in order. Publish and Close
// visit all of them and join their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// messageWriter is the subset of *kafka.Writer used by Kafka.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events as JSON messages.
type Kafka struct {
	w     messageWriter
	topic string
}

// NewKafka returns a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
	}
}

// Publish writes ev. The message key is the floor id, or the event type for
// project-wide events.
func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", ev.Type, err)
	}
	key := ev.FloorID
	if key == "" {
		key = ev.Type
	}
	msg := kafka.Message{Key: []byte(key), Value: b, Time: ev.OccurredAt}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: write %s to %s: %w", ev.Type, k.topic, err)
	}
	slog.Debug("events: published", "type", ev.Type, "topic", k.topic, "id", ev.ID)
	return nil
}

// Close flushes pending messages and releases the writer.
func (k *Kafka) Close() error {
	return k.w.Close()
}
