package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// NumbersResponse is the body returned by GET /numbers/:numberid.
type NumbersResponse struct {
	WindowPrevState []int64 `json:"windowPrevState"`
	WindowCurrState []int64 `json:"windowCurrstate"`
	Numbers         []int64 `json:"numbers"`
	Avg             float64 `json:"avg"`
}

// NewNumbersResponse converts a window report into its wire form. Nil slices become [].
func NewNumbersResponse(report domain.WindowReport) NumbersResponse {
	return NumbersResponse{
		WindowPrevState: domain.CloneWindow(report.PrevState),
		WindowCurrState: domain.CloneWindow(report.CurrState),
		Numbers:         domain.CloneWindow(report.Numbers),
		Avg:             report.Average,
	}
}

// HealthResponse describes the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports the outcome of each dependency check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
