// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "repair_build_info",
		Help: "Build information of the running binary.",
	}, []string{"version", "commit", "date"})

	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repair_timeline_source_failures_total",
		Help: "Timeline source reads that failed and were omitted from the result.",
	}, []string{"source"})

	SourceReadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repair_timeline_source_read_duration_seconds",
		Help:    "Duration of a single timeline source read.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repair_transitions_total",
		Help: "Device status transitions applied, by target status.",
	}, []string{"to_status"})

	TransitionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repair_transition_rejections_total",
		Help: "Rejected transition requests, by reason.",
	}, []string{"reason"})

	ResolverLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repair_resolver_directory_lookups_total",
		Help: "Batched user directory lookups issued by the name resolver.",
	})

	ResolverCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repair_resolver_cache_hits_total",
		Help: "Actor ids answered from the name cache.",
	})

	DevicesByBand = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "repair_open_devices",
		Help: "Open devices with a return date, by countdown band.",
	}, []string{"band"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repair_push_notifications_total",
		Help: "Push notifications attempted, by outcome.",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repair_http_requests_total",
		Help: "HTTP requests, by route and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repair_http_request_duration_seconds",
		Help:    "HTTP request latency, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// RecordSourceRead observes one timeline source read.
func RecordSourceRead(source string, d time.Duration, err error) {
	SourceReadDuration.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		SourceFailures.WithLabelValues(source).Inc()
	}
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
