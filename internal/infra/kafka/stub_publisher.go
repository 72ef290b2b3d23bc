package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

// PublishWindowUpdated logs numbers.window.updated events.
func (p *StubPublisher) PublishWindowUpdated(_ context.Context, event domain.WindowUpdatedEvent) error {
	p.logger.Debug("Stub event published",
		zap.String("event_type", EventTypeWindowUpdated),
		zap.String("event_id", event.EventID),
		zap.String("category", event.Category.String()),
		zap.Int64s("window_curr_state", event.CurrState),
		zap.Float64("avg", event.Average),
		zap.Time("timestamp", event.UpdatedAt.UTC()),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
