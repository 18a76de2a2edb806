package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		logger, err := New(dev, "test")
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.Equal(t, dev, logger.Core().Enabled(zap.DebugLevel))
	}
}

func TestAccessLog(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(RequestIDKey, "req-1"); c.Next() })
	r.Use(AccessLog(zap.New(core), false))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, p := range []string{"/health", "/ok", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-1", entries[0].ContextMap()["requestId"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
}
