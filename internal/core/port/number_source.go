package port

import (
	"context"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
)

// NumberSource fetches the current batch of numbers for a category from the upstream service.
// Implementations wrap failures with domain.ErrUpstreamMalformed or domain.ErrUpstreamUnavailable.
type NumberSource interface {
	Fetch(ctx context.Context, category domain.Category) ([]int64, error)
}
