package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fandomspace",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fandomspace",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	liveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fandomspace",
			Subsystem: "live",
			Name:      "subscriptions",
			Help:      "Current number of open live query subscriptions.",
		},
	)

	liveRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fandomspace",
			Subsystem: "live",
			Name:      "refreshes_total",
			Help:      "Live query recomputations triggered by commits.",
		},
		[]string{"success"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fandomspace",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job executions.",
		},
		[]string{"job", "success"},
	)

	suspensionsLifted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fandomspace",
			Subsystem: "moderation",
			Name:      "suspensions_lifted_total",
			Help:      "Suspensions cleared by the expiry sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		liveSubscriptions,
		liveRefreshes,
		jobRuns,
		suspensionsLifted,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func LiveSubscriptionOpened() { liveSubscriptions.Inc() }

func LiveSubscriptionClosed() { liveSubscriptions.Dec() }

func RecordLiveRefresh(success bool) {
	liveRefreshes.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordJobRun records a scheduler execution.
func RecordJobRun(job string, success bool) {
	if job == "" {
		job = "unknown"
	}
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}

func RecordSuspensionsLifted(n int64) {
	if n > 0 {
		suspensionsLifted.Add(float64(n))
	}
}
