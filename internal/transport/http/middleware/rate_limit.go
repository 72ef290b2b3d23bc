package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nithishkumarsaravanan/927622BAL034/internal/core/port"
	"github.com/nithishkumarsaravanan/927622BAL034/internal/infra/logger"
)

const (
	rateLimitProblemType  = "about:blank#rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// RateLimitStore is the sliding-window storage the limiter reads and writes.
type RateLimitStore = port.RateLimitStore

// IdentifierFunc extracts the key a rule is scoped to, e.g. the client IP.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces RateLimitRules against a RateLimitStore.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

type decision struct {
	rule       string
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// ProblemDetails is an RFC 9457 style body returned on 429.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// NewRateLimiter returns a limiter backed by store. A nil store disables limiting.
func NewRateLimiter(store RateLimitStore, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: log, now: time.Now}
}

// WithClock overrides the limiter clock.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule to the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit returns a Gin middleware enforcing rules in order. Store failures fail open.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if rl == nil || rl.store == nil || len(active) == 0 {
			c.Next()
			return
		}

		now := rl.now()
		var tightest *decision

		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			d, err := rl.evaluate(c, rule, rule.Name+":"+identifier, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("client_ip", logger.MaskIP(identifier)),
					zap.Error(err),
				)
				continue
			}

			if !d.allowed {
				writeRateLimitHeaders(c, d)
				rl.reject(c, d)
				return
			}

			if tightest == nil || d.remaining < tightest.remaining ||
				(d.remaining == tightest.remaining && d.reset.Before(tightest.reset)) {
				snapshot := d
				tightest = &snapshot
			}
		}

		if tightest != nil {
			writeRateLimitHeaders(c, *tightest)
		}

		c.Next()
	}
}

func (rl *RateLimiter) evaluate(c *gin.Context, rule RateLimitRule, key string, now time.Time) (decision, error) {
	ctx := c.Request.Context()

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return decision{}, fmt.Errorf("trim window: %w", err)
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return decision{}, fmt.Errorf("count attempts: %w", err)
	}

	oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return decision{}, fmt.Errorf("oldest attempt: %w", err)
	}

	d := decision{
		rule:    rule.Name,
		allowed: true,
		limit:   rule.Limit,
		reset:   now.Add(rule.Window),
	}
	if found {
		d.reset = oldest.Add(rule.Window)
	}
	d.retryAfter = d.reset.Sub(now)
	if d.retryAfter < 0 {
		d.retryAfter = 0
	}

	if count >= rule.Limit {
		d.allowed = false
		return d, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return decision{}, fmt.Errorf("record attempt: %w", err)
	}

	d.remaining = rule.Limit - count - 1
	if d.remaining < 0 {
		d.remaining = 0
	}

	return d, nil
}

func retrySeconds(d decision) int {
	seconds := int(math.Ceil(d.retryAfter.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}

func writeRateLimitHeaders(c *gin.Context, d decision) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))
	if !d.allowed {
		h.Set("Retry-After", strconv.Itoa(retrySeconds(d)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, d decision) {
	seconds := retrySeconds(d)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	rl.logger.Info("request rate limited",
		zap.String("rule", d.rule),
		zap.String("path", instance),
		zap.Int("retry_after", seconds),
	)

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}
