package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/config"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/transport/http/middleware"
	httproutes "github.com/nithishkumarsaravanan/927622BAL034/internal/transport/http/routes"
)

type fixedReporter struct{}

func (fixedReporter) Report(context.Context, string) (domain.WindowReport, error) {
	return domain.WindowReport{CurrState: []int64{1, 3, 5}, Numbers: []int64{1, 3, 5}, Average: 3}, nil
}

func (fixedReporter) UsageHint() string { return "p, f, e, or r" }

type countingStore struct {
	attempts int
}

func (s *countingStore) TrimWindow(context.Context, string, time.Duration, time.Time) error {
	return nil
}

func (s *countingStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return s.attempts, nil
}

func (s *countingStore) RecordAttempt(context.Context, string, time.Time) error {
	s.attempts++
	return nil
}

func (s *countingStore) OldestAttempt(context.Context, string, time.Duration, time.Time) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

type failingCache struct{}

func (failingCache) HealthCheck(context.Context) error { return errors.New("redis down") }

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App:       config.AppSettings{Env: "test"},
		RateLimit: config.RateLimitSettings{NumbersMaxAttempts: 2, WindowDuration: time.Minute},
		CORS:      config.CORSSettings{AllowedOrigins: []string{"*"}},
	}
}

func serve(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config: testConfig(),
		Logger: zap.NewNop(),
	})

	w := serve(r, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Header().Get(middleware.TraceIDHeader) == "" || w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("expected trace and request id headers")
	}
}

func TestReadinessUsesCacheCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config: testConfig(),
		Logger: zap.NewNop(),
		Cache:  failingCache{},
	})

	if w := serve(r, "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestNumbersRouteIsRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config:      testConfig(),
		Logger:      zap.NewNop(),
		Numbers:     fixedReporter{},
		RateLimiter: middleware.NewRateLimiter(&countingStore{}, zap.NewNop()),
	})

	for i := 0; i < 2; i++ {
		w := serve(r, "/numbers/p")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"avg":3`) {
			t.Fatalf("unexpected body %s", w.Body.String())
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Fatalf("request %d: expected rate limit headers keyed on client ip, got limit %q", i, got)
		}
	}

	if w := serve(r, "/numbers/p"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	// Health endpoints are never limited.
	if w := serve(r, "/healthz"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	r := httproutes.Register(httproutes.Dependencies{
		Config:      testConfig(),
		Logger:      zap.NewNop(),
		Numbers:     fixedReporter{},
		HTTPMetrics: metrics,
		Gatherer:    registry,
	})

	serve(r, "/numbers/e")

	w := serve(r, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "avg_http_requests_total") {
		t.Fatalf("expected http request counter in metrics output")
	}
}
