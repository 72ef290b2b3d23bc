package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/repository/memory"
)

type stubNumberSource struct {
	mu        sync.Mutex
	responses map[domain.Category][]stubResponse
	calls     []domain.Category
	block     bool
}

type stubResponse struct {
	numbers []int64
	err     error
}

func (s *stubNumberSource) queue(category domain.Category, numbers []int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.responses == nil {
		s.responses = make(map[domain.Category][]stubResponse)
	}
	s.responses[category] = append(s.responses[category], stubResponse{numbers: numbers, err: err})
}

func (s *stubNumberSource) Fetch(ctx context.Context, category domain.Category) ([]int64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, category)
	block := s.block
	var resp stubResponse
	if queued := s.responses[category]; len(queued) > 0 {
		resp = queued[0]
		s.responses[category] = queued[1:]
	}
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return resp.numbers, resp.err
}

type stubEventPublisher struct {
	events []domain.WindowUpdatedEvent
	err    error
}

func (s *stubEventPublisher) PublishWindowUpdated(_ context.Context, event domain.WindowUpdatedEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type stubNumbersMetrics struct {
	mu      sync.Mutex
	fetches []string
	ingests []string
	sizes   map[string]int
	avgs    map[string]float64
}

func (s *stubNumbersMetrics) ObserveFetch(category, result string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, category+":"+result)
}

func (s *stubNumbersMetrics) IncIngest(category, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingests = append(s.ingests, category+":"+outcome)
}

func (s *stubNumbersMetrics) SetWindow(category string, size int, average float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sizes == nil {
		s.sizes = make(map[string]int)
		s.avgs = make(map[string]float64)
	}
	s.sizes[category] = size
	s.avgs[category] = average
}

type numbersFixture struct {
	svc     *NumbersService
	source  *stubNumberSource
	events  *stubEventPublisher
	metrics *stubNumbersMetrics
	store   *memory.WindowStore
}

func newNumbersFixture(t *testing.T, mode domain.DegradationPolicyMode, timeout time.Duration) numbersFixture {
	t.Helper()

	registry, err := domain.NewCategoryRegistry(nil)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	source := &stubNumberSource{}
	events := &stubEventPublisher{}
	metrics := &stubNumbersMetrics{}
	store := memory.NewWindowStore(10, registry.Categories())

	svc := NewNumbersService(registry, source, store, NumbersOptions{
		FetchTimeout: timeout,
		Policy:       domain.NewDegradationPolicy(mode),
	}).
		WithLogger(zaptest.NewLogger(t)).
		WithEvents(events).
		WithMetrics(metrics).
		WithNow(func() time.Time { return time.Date(2025, 5, 24, 10, 0, 0, 0, time.UTC) })

	return numbersFixture{svc: svc, source: source, events: events, metrics: metrics, store: store}
}

func expectInts(t *testing.T, field string, got, want []int64) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected %s: got %#v, want %#v", field, got, want)
	}
}

func expectStrings(t *testing.T, field string, got, want []string) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected %s: got %v, want %v", field, got, want)
	}
}

func TestReportRejectsUnknownCategory(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeLenient, time.Second)

	_, err := f.svc.Report(context.Background(), "x")

	if !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if len(f.source.calls) != 0 {
		t.Fatalf("upstream must not be called for unknown categories, got %v", f.source.calls)
	}
}

func TestReportNormalisesCategory(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeLenient, time.Second)
	f.source.queue(domain.CategoryPrime, []int64{2, 3, 5, 7, 11}, nil)

	report, err := f.svc.Report(context.Background(), "  P ")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	if report.Category != domain.CategoryPrime {
		t.Fatalf("expected category p, got %q", report.Category)
	}
	expectInts(t, "prev state", report.PrevState, []int64{})
	expectInts(t, "curr state", report.CurrState, []int64{2, 3, 5, 7, 11})
	expectInts(t, "numbers", report.Numbers, []int64{2, 3, 5, 7, 11})
	if report.Average != 5.6 {
		t.Fatalf("expected avg 5.6, got %v", report.Average)
	}
}

func TestReportPublishesEventOnCommit(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeLenient, time.Second)
	f.source.queue(domain.CategoryEven, []int64{4, 6, 8}, nil)
	f.source.queue(domain.CategoryEven, []int64{6, 8, 10}, nil)

	if _, err := f.svc.Report(context.Background(), "e"); err != nil {
		t.Fatalf("first Report returned error: %v", err)
	}
	report, err := f.svc.Report(context.Background(), "e")
	if err != nil {
		t.Fatalf("second Report returned error: %v", err)
	}

	expectInts(t, "curr state", report.CurrState, []int64{4, 6, 8, 10})
	if report.Average != 7.0 {
		t.Fatalf("expected avg 7, got %v", report.Average)
	}

	if len(f.events.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(f.events.events))
	}
	last := f.events.events[1]
	if last.Category != domain.CategoryEven || last.Resource != "even" {
		t.Fatalf("unexpected event target %q/%q", last.Category, last.Resource)
	}
	expectInts(t, "event prev state", last.PrevState, []int64{4, 6, 8})
	expectInts(t, "event curr state", last.CurrState, []int64{4, 6, 8, 10})
	expectInts(t, "event fetched", last.Fetched, []int64{6, 8, 10})
	if last.EventID == "" {
		t.Fatalf("expected event id to be set")
	}

	expectStrings(t, "ingests", f.metrics.ingests, []string{"e:committed", "e:committed"})
	if f.metrics.sizes["e"] != 4 {
		t.Fatalf("expected window gauge 4, got %d", f.metrics.sizes["e"])
	}
}

func TestReportEventFailureDoesNotFailRequest(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeLenient, time.Second)
	f.events.err = errors.New("kafka down")
	f.source.queue(domain.CategoryRandom, []int64{9}, nil)

	report, err := f.svc.Report(context.Background(), "r")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	expectInts(t, "curr state", report.CurrState, []int64{9})
}

func TestReportDegradesOnUnavailableUpstream(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeStrict, time.Second)
	f.source.queue(domain.CategoryPrime, []int64{2, 3, 5}, nil)
	f.source.queue(domain.CategoryPrime, nil, fmt.Errorf("%w: status 503", domain.ErrUpstreamUnavailable))

	if _, err := f.svc.Report(context.Background(), "p"); err != nil {
		t.Fatalf("first Report returned error: %v", err)
	}
	report, err := f.svc.Report(context.Background(), "p")
	if err != nil {
		t.Fatalf("second Report returned error: %v", err)
	}

	expectInts(t, "prev state", report.PrevState, []int64{2, 3, 5})
	expectInts(t, "curr state", report.CurrState, []int64{2, 3, 5})
	expectInts(t, "numbers", report.Numbers, []int64{})
	if report.Average != 3.33 {
		t.Fatalf("expected avg 3.33, got %v", report.Average)
	}
	if len(f.events.events) != 1 {
		t.Fatalf("degraded requests must not publish, got %d events", len(f.events.events))
	}
	expectStrings(t, "ingests", f.metrics.ingests, []string{"p:committed", "p:degraded"})
	expectStrings(t, "fetches", f.metrics.fetches, []string{"p:ok", "p:upstream_unavailable"})
}

func TestReportDegradesOnTimeout(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeLenient, 20*time.Millisecond)
	f.source.block = true

	start := time.Now()
	report, err := f.svc.Report(context.Background(), "f")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}
	expectInts(t, "curr state", report.CurrState, []int64{})
	expectInts(t, "numbers", report.Numbers, []int64{})
	if report.Average != 0 {
		t.Fatalf("expected avg 0, got %v", report.Average)
	}
	expectStrings(t, "fetches", f.metrics.fetches, []string{"f:upstream_unavailable"})
}

func TestReportMalformedPayloadLenient(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeLenient, time.Second)
	f.source.queue(domain.CategoryEven, nil, fmt.Errorf("%w: numbers field missing", domain.ErrUpstreamMalformed))

	report, err := f.svc.Report(context.Background(), "e")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	expectInts(t, "numbers", report.Numbers, []int64{})
	if report.Committed {
		t.Fatalf("malformed payload must not commit")
	}
}

func TestReportMalformedPayloadStrict(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeStrict, time.Second)
	f.source.queue(domain.CategoryEven, []int64{2}, nil)
	f.source.queue(domain.CategoryEven, nil, fmt.Errorf("%w: numbers field missing", domain.ErrUpstreamMalformed))

	if _, err := f.svc.Report(context.Background(), "e"); err != nil {
		t.Fatalf("first Report returned error: %v", err)
	}
	_, err := f.svc.Report(context.Background(), "e")

	if !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Fatalf("expected ErrUpstreamMalformed, got %v", err)
	}
	expectStrings(t, "ingests", f.metrics.ingests, []string{"e:committed", "e:rejected"})

	current, _ := f.store.Snapshot(domain.CategoryEven)
	expectInts(t, "stored window", current, []int64{2})
}

func TestReportStrictRejectionRefreshesWindowGauge(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeStrict, time.Second)
	f.source.queue(domain.CategoryRandom, nil, fmt.Errorf("%w: decode body", domain.ErrUpstreamMalformed))

	if _, err := f.svc.Report(context.Background(), "r"); !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Fatalf("expected ErrUpstreamMalformed, got %v", err)
	}

	size, ok := f.metrics.sizes["r"]
	if !ok || size != 0 {
		t.Fatalf("expected empty window gauge for r, got %d (set=%v)", size, ok)
	}
}

func TestRefreshWindowMetricsCoversEveryCategory(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeLenient, time.Second)
	f.source.queue(domain.CategoryPrime, []int64{2, 3, 5}, nil)

	if _, err := f.svc.Report(context.Background(), "p"); err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	f.metrics.sizes = nil
	f.svc.RefreshWindowMetrics()

	for _, category := range domain.DefaultCategories {
		if _, ok := f.metrics.sizes[category.String()]; !ok {
			t.Fatalf("expected window gauge for %q, got %v", category, f.metrics.sizes)
		}
	}
	if f.metrics.sizes["p"] != 3 || f.metrics.avgs["p"] != 3.33 {
		t.Fatalf("expected p gauge 3/3.33, got %d/%v", f.metrics.sizes["p"], f.metrics.avgs["p"])
	}
	if f.metrics.sizes["e"] != 0 {
		t.Fatalf("expected empty e gauge, got %d", f.metrics.sizes["e"])
	}
}

func TestUsageHint(t *testing.T) {
	f := newNumbersFixture(t, domain.DegradationPolicyModeLenient, time.Second)
	if hint := f.svc.UsageHint(); hint != "p, f, e, or r" {
		t.Fatalf("unexpected usage hint %q", hint)
	}
}

func TestNewNumbersServiceDefaultsTimeout(t *testing.T) {
	registry, err := domain.NewCategoryRegistry(nil)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	svc := NewNumbersService(registry, &stubNumberSource{}, memory.NewWindowStore(10, registry.Categories()), NumbersOptions{})
	if svc.timeout != DefaultFetchTimeout {
		t.Fatalf("expected default timeout %v, got %v", DefaultFetchTimeout, svc.timeout)
	}
}
