package port

import (
	"context"
	"time"
)

// RateLimitStore persists timestamped attempts so callers can enforce sliding-window request limits.
// Identifiers are opaque keys such as "numbers_ip:192.0.2.1".
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
