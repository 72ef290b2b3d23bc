package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/domain"
)

const (
	upstreamInvalidMessage = "Invalid response from third-party API"
	averageFailedMessage   = "failed to compute average"
)

// NumbersReporter produces the window report for a raw category code.
type NumbersReporter interface {
	Report(ctx context.Context, rawCategory string) (domain.WindowReport, error)
	UsageHint() string
}

// NumbersHandler serves the sliding-window average endpoint.
type NumbersHandler struct {
	numbers NumbersReporter
}

// NewNumbersHandler constructs a numbers handler.
func NewNumbersHandler(numbers NumbersReporter) *NumbersHandler {
	return &NumbersHandler{numbers: numbers}
}

// RegisterRoutes binds the numbers endpoint. Extra middlewares run before the handler.
func (h *NumbersHandler) RegisterRoutes(r gin.IRouter, middlewares ...gin.HandlerFunc) {
	if r == nil {
		return
	}

	chain := append(append([]gin.HandlerFunc{}, middlewares...), h.GetAverage)
	r.GET("/numbers/:numberid", chain...)
}

// GetAverage fetches fresh numbers for the category, merges them into its window and
// returns the window before and after together with the average.
func (h *NumbersHandler) GetAverage(c *gin.Context) {
	if h.numbers == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "average calculator unavailable"))
		return
	}

	report, err := h.numbers.Report(c.Request.Context(), c.Param("numberid"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrInvalidCategory, Status: http.StatusBadRequest, Message: "Invalid numberid. Use " + h.numbers.UsageHint() + "."},
			{Err: domain.ErrUpstreamMalformed, Status: http.StatusBadGateway, Message: upstreamInvalidMessage},
		}, http.StatusInternalServerError, averageFailedMessage)
		return
	}

	c.JSON(http.StatusOK, NewNumbersResponse(report))
}
