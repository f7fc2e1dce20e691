// Package metrics exposes Prometheus instruments for scheduling runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics counts regeneration runs and what they produced. A nil
// *SchedulerMetrics is valid and records nothing.
type SchedulerMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	proposedTotal    *prometheus.CounterVec
	diagnosticsTotal *prometheus.CounterVec
	lockContention   prometheus.Counter
	overCapStaffDays prometheus.Gauge
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visit_engine",
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Week regenerations by trigger and status",
		}, []string{"trigger", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "visit_engine",
			Subsystem: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Duration of a week regeneration including persistence",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		proposedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visit_engine",
			Subsystem: "scheduler",
			Name:      "proposed_visits_total",
			Help:      "Visits proposed by discipline",
		}, []string{"discipline"}),
		diagnosticsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visit_engine",
			Subsystem: "scheduler",
			Name:      "diagnostics_total",
			Help:      "Scheduling diagnostics by step and outcome",
		}, []string{"step", "outcome"}),
		lockContention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visit_engine",
			Subsystem: "scheduler",
			Name:      "lock_contention_total",
			Help:      "Regenerations refused because the week was locked",
		}),
		overCapStaffDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "visit_engine",
			Subsystem: "workload",
			Name:      "over_cap_staff_days",
			Help:      "Staff-days over the daily cap in the last regenerated week",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.runsTotal, m.runDuration, m.proposedTotal, m.diagnosticsTotal, m.lockContention, m.overCapStaffDays)
	return m
}

func (m *SchedulerMetrics) ObserveRun(trigger, status string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(trigger, status).Inc()
	m.runDuration.WithLabelValues(trigger).Observe(seconds)
}

func (m *SchedulerMetrics) ObserveProposed(discipline string) {
	if m == nil {
		return
	}
	m.proposedTotal.WithLabelValues(discipline).Inc()
}

func (m *SchedulerMetrics) ObserveDiagnostic(step, outcome string) {
	if m == nil {
		return
	}
	m.diagnosticsTotal.WithLabelValues(step, outcome).Inc()
}

func (m *SchedulerMetrics) ObserveLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}

func (m *SchedulerMetrics) SetOverCapStaffDays(n int) {
	if m == nil {
		return
	}
	m.overCapStaffDays.Set(float64(n))
}
