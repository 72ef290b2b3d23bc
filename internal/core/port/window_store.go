package port

import "github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"

// WindowStore owns the per-category sliding windows.
type WindowStore interface {
	IngestAndReport(category domain.Category, result domain.FetchResult) domain.WindowReport
	Snapshot(category domain.Category) ([]int64, bool)
	Capacity() int
}
