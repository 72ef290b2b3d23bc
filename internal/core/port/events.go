package port

import (
	"context"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishWindowUpdated(ctx context.Context, event domain.WindowUpdatedEvent) error
}
