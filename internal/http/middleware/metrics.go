package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics holds the request collectors. They are registered on the
// registry passed to NewHTTPMetrics so tests can use a private one.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inflight prometheus.Gauge
	size     *prometheus.HistogramVec
}

// NewHTTPMetrics registers the hoststand_http_* collectors on reg.
func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hoststand_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hoststand_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hoststand_http_requests_inflight",
			Help: "HTTP requests currently being served.",
		}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "hoststand_http_response_size_bytes",
			Help: "HTTP response body size by method and route.",
			// dashboards are the largest bodies; 200B..1MiB covers them
			Buckets: prometheus.ExponentialBuckets(200, 2.5, 10),
		}, []string{"method", "path"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.latency, m.inflight, m.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler records one observation per request. Unmatched routes are
// labelled "unmatched" to keep path cardinality bounded.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			m.size.WithLabelValues(method, path).Observe(float64(n))
		}
	}
}
