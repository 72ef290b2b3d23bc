package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WindowMetricsOptions configures the window collectors.
type WindowMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// WindowMetrics exposes Prometheus collectors describing window ingests and upstream fetches.
type WindowMetrics struct {
	Ingests       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	WindowSize    *prometheus.GaugeVec
	WindowAverage *prometheus.GaugeVec
}

// NewWindowMetrics constructs and registers the window collectors.
func NewWindowMetrics(opts WindowMetricsOptions) (*WindowMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "avg"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ingests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "window",
		Name:      "ingests_total",
		Help:      "Number of window ingests partitioned by category and outcome.",
	}, []string{"category", "outcome"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "fetch_duration_seconds",
		Help:      "Latency of upstream number fetches partitioned by category and result.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5},
	}, []string{"category", "result"})

	size := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "window",
		Name:      "size",
		Help:      "Current number of values retained per category.",
	}, []string{"category"})

	average := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "window",
		Name:      "average",
		Help:      "Current window average per category.",
	}, []string{"category"})

	var err error
	if ingests, err = registerOrReuse(reg, ingests); err != nil {
		return nil, err
	}
	if fetchDuration, err = registerOrReuse(reg, fetchDuration); err != nil {
		return nil, err
	}
	if size, err = registerOrReuse(reg, size); err != nil {
		return nil, err
	}
	if average, err = registerOrReuse(reg, average); err != nil {
		return nil, err
	}

	return &WindowMetrics{
		Ingests:       ingests,
		FetchDuration: fetchDuration,
		WindowSize:    size,
		WindowAverage: average,
	}, nil
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// ObserveFetch records the latency of an upstream fetch.
func (m *WindowMetrics) ObserveFetch(category, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(category, result).Observe(d.Seconds())
}

// IncIngest counts an ingest outcome such as "committed", "degraded" or "rejected".
func (m *WindowMetrics) IncIngest(category, outcome string) {
	if m == nil {
		return
	}
	m.Ingests.WithLabelValues(category, outcome).Inc()
}

// SetWindow publishes the current window size and average.
func (m *WindowMetrics) SetWindow(category string, size int, average float64) {
	if m == nil {
		return
	}
	m.WindowSize.WithLabelValues(category).Set(float64(size))
	m.WindowAverage.WithLabelValues(category).Set(average)
}
