// Package events publishes case lifecycle events for downstream consumers
// such as dispatch boards and reporting pipelines.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Type string

const (
	CaseCreated       Type = "case.created"
	CaseStatusChanged Type = "case.status_changed"
)

// Event is the JSON payload written for every case change.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	CaseNumber    string    `json:"case_number"`
	PatientNumber string    `json:"patient_number,omitempty"`
	ResponderID   string    `json:"responder_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	InjuryCount   int       `json:"injury_count,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// New stamps an event with an id and the current time.
func New(t Type, caseNumber string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		CaseNumber: caseNumber,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by case number, so every
// event of one case lands on the same partition in order.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.CaseNumber),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event for %s: %w", e.Type, e.CaseNumber, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// LogPublisher writes events to the log. Used when no brokers are configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info().
		Str("event_id", e.ID).
		Str("event_type", string(e.Type)).
		Str("case_number", e.CaseNumber).
		Str("status", e.Status).
		Msg("case event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Fanout publishes every event to each publisher in order. All publishers
// are tried; their errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
