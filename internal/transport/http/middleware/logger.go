package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appLogger "github.com/nithishkumarsaravanan/927622BAL034/internal/infra/logger"
)

// Logger emits access logs for every HTTP request with correlation identifiers and masked client IPs.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		rc := requestMetadata(c)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("trace_id", rc.TraceID),
			zap.String("request_id", appLogger.RequestIDFromContext(c.Request.Context())),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", appLogger.MaskIP(rc.IP)),
		}

		if rc.UserAgent != "" {
			fields = append(fields, zap.String("user_agent", rc.UserAgent))
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// requestMetadata prefers what EnrichContext captured and falls back to the raw request.
func requestMetadata(c *gin.Context) RequestContext {
	rc := *GetRequestContext(c)
	if rc.TraceID == "" {
		rc.TraceID = GetTraceID(c)
	}
	if rc.IP == "" {
		rc.IP = c.ClientIP()
	}
	if rc.UserAgent == "" {
		rc.UserAgent = c.Request.UserAgent()
	}
	return rc
}
