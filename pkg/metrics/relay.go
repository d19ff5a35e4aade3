package metrics

import "github.com/prometheus/client_golang/prometheus"

// Relay outcomes for one outbox row.
const (
	RelayPublished = "published"
	RelayRetried   = "retried"
	RelayParked    = "parked"
)

// RelayMetrics counts what the outbox publisher did with each row it claimed.
type RelayMetrics struct {
	rows    *prometheus.CounterVec
	backlog prometheus.Gauge
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "rows_total",
		Help:      "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "last_batch_size",
		Help:      "Rows claimed by the most recent publisher batch.",
	})
	reg.MustRegister(rows, backlog)
	return &RelayMetrics{rows: rows, backlog: backlog}
}

func (r *RelayMetrics) Row(eventType, outcome string) {
	if r == nil || r.rows == nil {
		return
	}
	r.rows.WithLabelValues(eventType, outcome).Inc()
}

func (r *RelayMetrics) Batch(size int) {
	if r == nil || r.backlog == nil {
		return
	}
	r.backlog.Set(float64(size))
}
