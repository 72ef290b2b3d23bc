package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/port"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	// EventTypeWindowUpdated is emitted after a category window is replaced.
	EventTypeWindowUpdated = "numbers.window.updated"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Category  string            `json:"category"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type windowUpdatedPayload struct {
	Category  string    `json:"category"`
	Resource  string    `json:"resource"`
	PrevState []int64   `json:"window_prev_state"`
	CurrState []int64   `json:"window_curr_state"`
	Fetched   []int64   `json:"numbers"`
	Average   float64   `json:"avg"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, key string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Category:  key,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishWindowUpdated publishes numbers.window.updated events keyed by category.
func (p *EventPublisher) PublishWindowUpdated(ctx context.Context, event domain.WindowUpdatedEvent) error {
	payload := windowUpdatedPayload{
		Category:  event.Category.String(),
		Resource:  event.Resource,
		PrevState: nonNil(event.PrevState),
		CurrState: nonNil(event.CurrState),
		Fetched:   nonNil(event.Fetched),
		Average:   event.Average,
		UpdatedAt: event.UpdatedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventTypeWindowUpdated, event.Category.String(), event.UpdatedAt, payload)
}

func nonNil(values []int64) []int64 {
	if values == nil {
		return []int64{}
	}
	return values
}

var _ port.EventPublisher = (*EventPublisher)(nil)
