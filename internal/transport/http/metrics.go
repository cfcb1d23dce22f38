package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	submissions      *prometheus.CounterVec
	completionChecks *prometheus.CounterVec
	wsSessions       prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Quiz submissions by result",
			},
			[]string{"result"},
		),
		completionChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_completion_checks_total",
				Help: "Completion checks by outcome",
			},
			[]string{"outcome"},
		),
		wsSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_ws_sessions",
			Help: "Open websocket quiz sessions",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.submissions,
		m.completionChecks,
		m.wsSessions,
		collectors.NewGoCollector(),
	)
	return m
}

// Middleware records request counts and latencies per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func (m *Metrics) observeSubmission(err error) {
	if err != nil {
		m.submissions.WithLabelValues("error").Inc()
		return
	}
	m.submissions.WithLabelValues("ok").Inc()
}

func (m *Metrics) observeCompletionCheck(hasCompleted bool, err error) {
	switch {
	case err != nil:
		m.completionChecks.WithLabelValues("error").Inc()
	case hasCompleted:
		m.completionChecks.WithLabelValues("completed").Inc()
	default:
		m.completionChecks.WithLabelValues("new").Inc()
	}
}
