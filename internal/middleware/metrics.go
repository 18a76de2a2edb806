package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	reportsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armline_reports_submitted_total",
			Help: "Reports submitted",
		},
		[]string{"category", "priority", "anonymous"},
	)

	escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armline_escalations_total",
			Help: "Reports escalated to an external agency",
		},
		[]string{"agency"},
	)
)

// MetricsMiddleware collects Prometheus metrics for each request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// long-lived stream, kept out of request metrics
		if c.FullPath() == "/api/admin/reports/stream" {
			c.Next()
			return
		}

		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordReportSubmitted counts a stored report.
func RecordReportSubmitted(category, priority string, anonymous bool) {
	reportsSubmittedTotal.WithLabelValues(category, priority, strconv.FormatBool(anonymous)).Inc()
}

func RecordEscalation(agency string) {
	escalationsTotal.WithLabelValues(agency).Inc()
}
