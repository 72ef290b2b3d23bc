package domain

import "github.com/shopspring/decimal"

// DefaultWindowCapacity is the number of values retained per category when unconfigured.
const DefaultWindowCapacity = 10

// FetchResult is the outcome of a single upstream fetch: either numbers or an error.
type FetchResult struct {
	Numbers []int64
	Err     error
}

// FetchOK wraps a successful fetch.
func FetchOK(numbers []int64) FetchResult {
	return FetchResult{Numbers: numbers}
}

// FetchFailed wraps a failed fetch. A nil reason is replaced with ErrUpstreamUnavailable.
func FetchFailed(reason error) FetchResult {
	if reason == nil {
		reason = ErrUpstreamUnavailable
	}
	return FetchResult{Err: reason}
}

// OK reports whether the fetch produced numbers.
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// WindowReport is the outcome of an ingest for a single category.
type WindowReport struct {
	Category  Category
	PrevState []int64
	CurrState []int64
	Numbers   []int64
	Average   float64
	// Committed is true when the stored window was replaced by this ingest.
	Committed bool
}

// MergeWindow returns the ordered union of stored and incoming values. Stored values keep
// their order; incoming values not yet present follow in first-appearance order.
func MergeWindow(stored, incoming []int64) []int64 {
	seen := make(map[int64]struct{}, len(stored)+len(incoming))
	merged := make([]int64, 0, len(stored)+len(incoming))

	for _, v := range stored {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
	}

	for _, v := range incoming {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
	}

	return merged
}

// TruncateWindow keeps the last capacity elements of values.
func TruncateWindow(values []int64, capacity int) []int64 {
	if capacity <= 0 {
		return []int64{}
	}
	if len(values) <= capacity {
		return values
	}
	return values[len(values)-capacity:]
}

// WindowAverage computes the arithmetic mean rounded half away from zero to two decimals.
// An empty window averages to zero.
func WindowAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromInt(v))
	}

	avg, _ := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).Float64()
	return avg
}

// CloneWindow returns a non-nil copy of values.
func CloneWindow(values []int64) []int64 {
	out := make([]int64, len(values))
	copy(out, values)
	return out
}
