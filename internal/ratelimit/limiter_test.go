package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], window, nil
}

func TestLimiter_Check(t *testing.T) {
	t.Parallel()

	counter := &memCounter{}
	l := NewLimiter(counter, map[string]ActionConfig{"x": {Limit: 2, Window: time.Minute}}, zap.NewNop())

	for i, want := range []bool{true, true, false} {
		res, err := l.Check(context.Background(), "1.2.3.4", "x")
		require.NoError(t, err)
		assert.Equal(t, want, res.Allowed, "hit %d", i+1)
	}
	res, err := l.Check(context.Background(), "5.6.7.8", "x")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "other clients have their own window")
	assert.EqualValues(t, 1, res.Remaining)

	assert.EqualValues(t, 3, counter.counts["rate:1.2.3.4:x"])
}

func TestLimiter_NoCounter(t *testing.T) {
	t.Parallel()

	l := NewLimiter(nil, nil, zap.NewNop())
	for i := 0; i < 50; i++ {
		res, err := l.Check(context.Background(), "ip", ActionAnonymousReport)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}

func serve(l *Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/report", l.Middleware(ActionAnonymousReport), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	r := serve(NewLimiter(&memCounter{}, nil, zap.NewNop()))
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/report", nil))
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/report", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMiddleware_FailOpen(t *testing.T) {
	t.Parallel()

	r := serve(NewLimiter(&memCounter{err: errors.New("connection refused")}, nil, zap.NewNop()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/report", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}
