package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "contract"

	outcomeOK    = "ok"
	outcomeError = "error"
)

// RunMetrics times background work (cron jobs, queue tasks) and counts outcomes per unit name.
type RunMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

func newRunMetrics(reg prometheus.Registerer, subsystem, label, what string) *RunMetrics {
	if reg == nil {
		return &RunMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duration_seconds",
		Help:      "Duration of " + what + " in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{label})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "runs_total",
		Help:      "Finished " + what + " by outcome.",
	}, []string{label, "outcome"})
	reg.MustRegister(duration, runs)
	return &RunMetrics{duration: duration, runs: runs}
}

// NewCronJobMetrics exports contract_cron_job_* series labelled by job.
func NewCronJobMetrics(reg prometheus.Registerer) *RunMetrics {
	return newRunMetrics(reg, "cron_job", "job", "housekeeping jobs")
}

// NewDispatchMetrics exports contract_dispatch_task_* series labelled by task type.
func NewDispatchMetrics(reg prometheus.Registerer) *RunMetrics {
	return newRunMetrics(reg, "dispatch_task", "task", "delivery tasks")
}

// Observe records one run of name. A nil err counts as "ok".
func (m *RunMetrics) Observe(name string, elapsed time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	name = normalizeLabel(name)
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	m.runs.WithLabelValues(name, outcome).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
