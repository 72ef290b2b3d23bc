package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/port"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/config"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/logger"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/telemetry"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 1 << 20

// Client fetches numbers from the third-party evaluation service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
	categories *domain.CategoryRegistry
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewClient constructs an upstream client. The HTTP client timeout mirrors the configured fetch timeout;
// callers should still bound each call with a context deadline.
func NewClient(cfg config.UpstreamSettings, categories *domain.CategoryRegistry, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		authHeader: authorizationHeader(cfg.Token),
		categories: categories,
		tracer:     otel.Tracer(telemetry.TracerName),
		logger:     logger,
	}
}

// WithHTTPClient overrides the underlying HTTP client, primarily for testing.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.httpClient = client
	}
	return c
}

type numbersPayload struct {
	Numbers *[]json.Number `json:"numbers"`
}

// Fetch performs a single GET for the category's resource. Failures are wrapped with
// domain.ErrUpstreamUnavailable or domain.ErrUpstreamMalformed.
func (c *Client) Fetch(ctx context.Context, category domain.Category) ([]int64, error) {
	resource, ok := c.categories.Resource(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category.String())
	}

	url := c.resourceURL(resource)

	ctx, span := c.tracer.Start(ctx, "upstream.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("numbers.category", category.String()),
		attribute.String("http.url", url),
	)

	numbers, err := c.fetch(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WithContext(ctx, c.logger).Warn("upstream fetch failed",
			zap.String("category", category.String()),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("numbers.count", len(numbers)))
	return numbers, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	logger.WithContext(ctx, c.logger).Debug("upstream responded",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnavailable, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrUpstreamUnavailable, maxBodyBytes)
	}

	return decodeNumbers(body)
}

func decodeNumbers(body []byte) ([]int64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload numbersPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", domain.ErrUpstreamMalformed, err)
	}
	if payload.Numbers == nil {
		return nil, fmt.Errorf("%w: numbers field missing", domain.ErrUpstreamMalformed)
	}

	numbers := make([]int64, 0, len(*payload.Numbers))
	for _, raw := range *payload.Numbers {
		n, err := wholeNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamMalformed, err)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// wholeNumber accepts integral JSON numbers in any notation, e.g. 2, 2.0 or 1e3.
func wholeNumber(raw json.Number) (int64, error) {
	if n, err := raw.Int64(); err == nil {
		return n, nil
	}
	f, err := raw.Float64()
	if err != nil {
		return 0, fmt.Errorf("number %q: %v", raw, err)
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("number %q is not a whole int64", raw)
	}
	return int64(f), nil
}

func (c *Client) resourceURL(resource string) string {
	if strings.HasSuffix(c.baseURL, "/") {
		return c.baseURL + resource
	}
	return c.baseURL + "/" + resource
}

func authorizationHeader(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return token
	}
	return "Bearer " + token
}

var _ port.NumberSource = (*Client)(nil)
