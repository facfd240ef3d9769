package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records service outcomes and floor state in Prometheus. It
// satisfies services.MetricsSink.
type PromSink struct {
	ops      *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tables   *prometheus.GaugeVec
	waitlist prometheus.Gauge
}

// NewPromSink registers the floor collectors with reg.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	s := &PromSink{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hoststand_operations_total",
			Help: "Host-stand operations by name and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hoststand_operation_duration_seconds",
			Help:    "Duration of host-stand operations.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
		tables: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hoststand_tables",
			Help: "Active tables by floor status.",
		}, []string{"status"}),
		waitlist: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hoststand_waitlist_length",
			Help: "Parties waiting or notified.",
		}),
	}
	for _, c := range []prometheus.Collector{s.ops, s.latency, s.tables, s.waitlist} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PromSink) ObserveOperation(op, outcome string, d time.Duration) {
	s.ops.WithLabelValues(op, outcome).Inc()
	s.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (s *PromSink) SetFloorGauge(status string, n int) {
	s.tables.WithLabelValues(status).Set(float64(n))
}

func (s *PromSink) SetWaitlistLength(n int) { s.waitlist.Set(float64(n)) }
