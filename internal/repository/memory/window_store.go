package memory

import (
	"sync"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/port"
)

type categoryWindow struct {
	mu     sync.Mutex
	values []int64
}

// WindowStore keeps a bounded, deduplicated window of numbers per category in process memory.
// The category set is fixed at construction; each window is guarded by its own mutex so
// ingests for different categories never contend.
type WindowStore struct {
	capacity int
	windows  map[domain.Category]*categoryWindow
}

// NewWindowStore creates empty windows for every category. Capacity below one falls back
// to domain.DefaultWindowCapacity.
func NewWindowStore(capacity int, categories []domain.Category) *WindowStore {
	if capacity <= 0 {
		capacity = domain.DefaultWindowCapacity
	}

	windows := make(map[domain.Category]*categoryWindow, len(categories))
	for _, category := range categories {
		windows[category] = &categoryWindow{values: []int64{}}
	}

	return &WindowStore{capacity: capacity, windows: windows}
}

// Capacity returns the maximum number of values retained per category.
func (s *WindowStore) Capacity() int {
	return s.capacity
}

// IngestAndReport merges a fetch result into the category window and reports the previous
// and current state. A failed fetch leaves the window untouched. Unknown categories yield
// an empty report.
func (s *WindowStore) IngestAndReport(category domain.Category, result domain.FetchResult) domain.WindowReport {
	w, ok := s.windows[category]
	if !ok {
		return domain.WindowReport{
			Category:  category,
			PrevState: []int64{},
			CurrState: []int64{},
			Numbers:   []int64{},
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	prev := domain.CloneWindow(w.values)

	if !result.OK() {
		return domain.WindowReport{
			Category:  category,
			PrevState: prev,
			CurrState: domain.CloneWindow(w.values),
			Numbers:   []int64{},
			Average:   domain.WindowAverage(w.values),
		}
	}

	merged := domain.MergeWindow(w.values, result.Numbers)
	w.values = domain.CloneWindow(domain.TruncateWindow(merged, s.capacity))

	return domain.WindowReport{
		Category:  category,
		PrevState: prev,
		CurrState: domain.CloneWindow(w.values),
		Numbers:   domain.CloneWindow(result.Numbers),
		Average:   domain.WindowAverage(w.values),
		Committed: true,
	}
}

// Snapshot returns a copy of the current window for the category.
func (s *WindowStore) Snapshot(category domain.Category) ([]int64, bool) {
	w, ok := s.windows[category]
	if !ok {
		return nil, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return domain.CloneWindow(w.values), true
}

var _ port.WindowStore = (*WindowStore)(nil)
