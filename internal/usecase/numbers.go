package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/port"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/logger"
)

// DefaultFetchTimeout bounds a single upstream fetch when no timeout is configured.
const DefaultFetchTimeout = 2 * time.Second

const (
	outcomeCommitted = "committed"
	outcomeDegraded  = "degraded"
	outcomeRejected  = "rejected"
)

// NumbersMetrics captures telemetry hooks for fetches and window ingests.
type NumbersMetrics interface {
	ObserveFetch(category, result string, d time.Duration)
	IncIngest(category, outcome string)
	SetWindow(category string, size int, average float64)
}

// NumbersOptions configures optional behaviours for the service.
type NumbersOptions struct {
	FetchTimeout time.Duration
	Policy       domain.DegradationPolicy
}

// NumbersService validates category codes, fetches fresh numbers and folds them into the window store.
type NumbersService struct {
	categories *domain.CategoryRegistry
	source     port.NumberSource
	store      port.WindowStore
	events     port.EventPublisher
	timeout    time.Duration
	policy     domain.DegradationPolicy
	logger     *zap.Logger
	metrics    NumbersMetrics
	now        func() time.Time
}

// NewNumbersService constructs the numbers service.
func NewNumbersService(categories *domain.CategoryRegistry, source port.NumberSource, store port.WindowStore, opts NumbersOptions) *NumbersService {
	svc := &NumbersService{
		categories: categories,
		source:     source,
		store:      store,
		timeout:    opts.FetchTimeout,
		policy:     opts.Policy,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	if svc.timeout <= 0 {
		svc.timeout = DefaultFetchTimeout
	}
	return svc
}

// WithLogger attaches a structured logger to the service for operational diagnostics.
func (s *NumbersService) WithLogger(logger *zap.Logger) *NumbersService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithEvents wires the publisher notified after each committed window update.
func (s *NumbersService) WithEvents(events port.EventPublisher) *NumbersService {
	if events != nil {
		s.events = events
	}
	return s
}

// WithMetrics wires telemetry observers for fetches and ingests.
func (s *NumbersService) WithMetrics(metrics NumbersMetrics) *NumbersService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithNow overrides the clock, primarily for deterministic testing.
func (s *NumbersService) WithNow(now func() time.Time) *NumbersService {
	if now != nil {
		s.now = now
	}
	return s
}

// UsageHint lists the accepted category codes.
func (s *NumbersService) UsageHint() string {
	return s.categories.UsageHint()
}

// Report resolves the raw category code, fetches numbers under the configured timeout and
// returns the resulting window report. Only an unknown category, or a malformed payload under
// the strict policy, produces an error; every other upstream failure yields the stored window.
func (s *NumbersService) Report(ctx context.Context, rawCategory string) (domain.WindowReport, error) {
	log := logger.WithContext(ctx, s.logger)

	category, err := s.categories.Parse(rawCategory)
	if err != nil {
		log.Info("rejected unknown category", zap.String("numberid", rawCategory))
		return domain.WindowReport{}, err
	}

	result := s.fetch(ctx, category)

	if !result.OK() {
		reason := domain.ClassifyFetchError(result.Err)
		if !s.policy.AllowsFallback(reason) {
			s.incIngest(category, outcomeRejected)
			log.Warn("upstream payload rejected",
				zap.String("category", category.String()),
				zap.String("reason", string(reason)),
				zap.Error(result.Err),
			)
			s.refreshWindow(category)
			return domain.WindowReport{}, result.Err
		}
	}

	report := s.store.IngestAndReport(category, result)

	if report.Committed {
		s.incIngest(category, outcomeCommitted)
		s.publish(ctx, category, report)
	} else {
		s.incIngest(category, outcomeDegraded)
		log.Info("serving stored window after upstream failure",
			zap.String("category", category.String()),
			zap.String("reason", string(domain.ClassifyFetchError(result.Err))),
		)
	}

	if s.metrics != nil {
		s.metrics.SetWindow(category.String(), len(report.CurrState), report.Average)
	}

	log.Debug("window updated",
		zap.String("category", category.String()),
		zap.Int64s("prev", report.PrevState),
		zap.Int64s("curr", report.CurrState),
		zap.Int64s("fetched", report.Numbers),
		zap.Float64("avg", report.Average),
	)

	return report, nil
}

// RefreshWindowMetrics publishes the stored size and average of every category window.
func (s *NumbersService) RefreshWindowMetrics() {
	for _, category := range s.categories.Categories() {
		s.refreshWindow(category)
	}
}

func (s *NumbersService) refreshWindow(category domain.Category) {
	if s.metrics == nil {
		return
	}
	window, ok := s.store.Snapshot(category)
	if !ok {
		return
	}
	s.metrics.SetWindow(category.String(), len(window), domain.WindowAverage(window))
}

func (s *NumbersService) fetch(ctx context.Context, category domain.Category) domain.FetchResult {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	numbers, err := s.source.Fetch(fetchCtx, category)
	elapsed := s.now().Sub(start)

	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrUpstreamUnavailable) {
			err = errors.Join(domain.ErrUpstreamUnavailable, err)
		}
		s.observeFetch(category, string(domain.ClassifyFetchError(err)), elapsed)
		return domain.FetchFailed(err)
	}

	s.observeFetch(category, "ok", elapsed)
	return domain.FetchOK(numbers)
}

func (s *NumbersService) publish(ctx context.Context, category domain.Category, report domain.WindowReport) {
	if s.events == nil {
		return
	}

	resource, _ := s.categories.Resource(category)
	event := domain.WindowUpdatedEvent{
		EventID:   uuid.NewString(),
		Category:  category,
		Resource:  resource,
		PrevState: report.PrevState,
		CurrState: report.CurrState,
		Fetched:   report.Numbers,
		Average:   report.Average,
		UpdatedAt: s.now().UTC(),
	}

	if err := s.events.PublishWindowUpdated(ctx, event); err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to publish window event",
			zap.String("category", category.String()),
			zap.Error(err),
		)
	}
}

func (s *NumbersService) observeFetch(category domain.Category, result string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveFetch(category.String(), result, d)
	}
}

func (s *NumbersService) incIngest(category domain.Category, outcome string) {
	if s.metrics != nil {
		s.metrics.IncIngest(category.String(), outcome)
	}
}
