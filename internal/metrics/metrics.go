package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ToggleOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "toggle_operations_total",
		Help: "Total number of relationship toggles by target kind and resulting state",
	}, []string{"kind", "state"})
	ToggleConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "toggle_conflicts_total",
		Help: "Concurrent toggle inserts absorbed as already-created",
	}, []string{"kind"})
	TokenRotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_rotations_total",
		Help: "Refresh token rotations by result",
	}, []string{"result"})
	VideoViews = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "video_views_total",
		Help: "Recorded video views by viewer type and whether the counter was incremented",
	}, []string{"viewer", "counted"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(ToggleOperations, ToggleConflicts, TokenRotations, VideoViews, HttpRequestsTotal, HttpRequestDuration)
}

// GinMiddleware 统计基础请求指标，供 Prometheus 拉取。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
