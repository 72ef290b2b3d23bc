package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWindowMetricsRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewWindowMetrics(WindowMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create window metrics: %v", err)
	}

	metrics.IncIngest("p", "committed")
	metrics.IncIngest("p", "committed")
	metrics.ObserveFetch("p", "ok", 20*time.Millisecond)
	metrics.SetWindow("p", 3, 3.33)

	if got := testutil.ToFloat64(metrics.Ingests.WithLabelValues("p", "committed")); got != 2 {
		t.Fatalf("expected 2 ingests, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.WindowSize.WithLabelValues("p")); got != 3 {
		t.Fatalf("expected window size 3, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.WindowAverage.WithLabelValues("p")); got != 3.33 {
		t.Fatalf("expected window average 3.33, got %f", got)
	}
	if samples := testutil.CollectAndCount(metrics.FetchDuration); samples == 0 {
		t.Fatalf("expected fetch histogram to have samples")
	}
}

func TestWindowMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewWindowMetrics(WindowMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	second, err := NewWindowMetrics(WindowMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("second registration failed: %v", err)
	}

	second.IncIngest("e", "degraded")
	if got := testutil.ToFloat64(first.Ingests.WithLabelValues("e", "degraded")); got != 1 {
		t.Fatalf("expected shared collector, got %f", got)
	}
}

func TestWindowMetricsNilSafe(t *testing.T) {
	var metrics *WindowMetrics
	metrics.IncIngest("p", "committed")
	metrics.ObserveFetch("p", "ok", time.Millisecond)
	metrics.SetWindow("p", 1, 1)
}
