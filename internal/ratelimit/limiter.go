// Package ratelimit throttles the public endpoints per client IP with a
// fixed-window counter.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	ActionAnonymousReport = "anonymous_report"
	ActionCheckStatus     = "check_status"
	ActionLogin           = "login"
	ActionForgotPassword  = "forgot_password"
)

type ActionConfig struct {
	Limit  int64
	Window time.Duration
}

var DefaultLimits = map[string]ActionConfig{
	ActionAnonymousReport: {Limit: 5, Window: 10 * time.Minute},
	ActionCheckStatus:     {Limit: 30, Window: time.Minute},
	ActionLogin:           {Limit: 20, Window: time.Minute},
	ActionForgotPassword:  {Limit: 5, Window: 10 * time.Minute},
}

var fallbackLimit = ActionConfig{Limit: 100, Window: time.Minute}

var rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "armline_rate_limited_total",
	Help: "Requests rejected by the rate limiter.",
}, []string{"action"})

type Result struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
	Limit     int64
}

// Limiter checks per-client quotas. A nil counter disables limiting.
type Limiter struct {
	counter Counter
	limits  map[string]ActionConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewLimiter(counter Counter, limits map[string]ActionConfig, logger *zap.Logger) *Limiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Limiter{counter: counter, limits: limits, logger: logger.Named("ratelimit"), now: time.Now}
}

func (l *Limiter) config(action string) ActionConfig {
	if c, ok := l.limits[action]; ok {
		return c
	}
	return fallbackLimit
}

// Check counts one hit of action by clientID.
func (l *Limiter) Check(ctx context.Context, clientID, action string) (*Result, error) {
	cfg := l.config(action)
	if l.counter == nil {
		return &Result{Allowed: true, Remaining: cfg.Limit, Limit: cfg.Limit}, nil
	}

	count, ttl, err := l.counter.Incr(ctx, fmt.Sprintf("rate:%s:%s", clientID, action), cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to increment counter: %w", err)
	}
	if ttl <= 0 {
		ttl = cfg.Window
	}
	remaining := cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   count <= cfg.Limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
		Limit:     cfg.Limit,
	}, nil
}

// Middleware rejects requests over the action's quota with 429. When the
// counter is unreachable the request is let through.
func (l *Limiter) Middleware(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := l.Check(c.Request.Context(), c.ClientIP(), action)
		if err != nil {
			l.logger.Warn("rate limiter unavailable, allowing request", zap.String("action", action), zap.Error(err))
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.ResetAt.IsZero() {
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		}
		if !res.Allowed {
			rateLimited.WithLabelValues(action).Inc()
			if retry := int(time.Until(res.ResetAt).Seconds()); retry > 0 {
				h.Set("Retry-After", strconv.Itoa(retry))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}
