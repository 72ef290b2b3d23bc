package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/logger"
)

const tracingInstrumentation = "github.com/nithishkumarsaravanan/927622BAL034/internal/transport/http"

// TracingOptions customises the tracing middleware. Zero values fall back to the otel globals.
type TracingOptions struct {
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
}

// Tracing starts a server span per request, continuing any inbound trace context.
func Tracing(opts TracingOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := opts.TracerProvider
		if provider == nil {
			provider = otel.GetTracerProvider()
		}
		propagator := opts.Propagators
		if propagator == nil {
			propagator = otel.GetTextMapPropagator()
		}

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := provider.Tracer(tracingInstrumentation).Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.request_id", logger.RequestIDFromContext(c.Request.Context())),
				attribute.String("trace_id", GetTraceID(c)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, c.Errors.String())
		}
	}
}
