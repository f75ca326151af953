package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records request duration in seconds
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"}, // success, invalid, throttled
	)

	TenantSwitchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_tenant_switches_total",
			Help: "Tenant switch attempts by result",
		},
		[]string{"result"},
	)

	MessagesAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Messages appended to the log",
		},
	)

	ActivePolls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_polls",
			Help: "Long-poll requests currently waiting",
		},
	)

	PollOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_poll_outcomes_total",
			Help: "Completed polls by outcome",
		},
		[]string{"outcome"}, // new_data, timeout, cancelled, error
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			LoginCounter,
			TenantSwitchCounter,
			MessagesAppended,
			ActivePolls,
			PollOutcomes,
		)
	})
}

// Middleware records request count and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		RequestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
