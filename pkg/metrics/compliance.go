package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ComplianceMetrics tracks engine outcomes observed by services and jobs.
type ComplianceMetrics struct {
	artifacts   *prometheus.GaugeVec
	obligations *prometheus.GaugeVec
	executions  *prometheus.CounterVec
	advanced    prometheus.Counter
	reminders   prometheus.Counter
	conflicts   *prometheus.CounterVec
}

// NewComplianceMetrics registers the compliance metrics on reg. A nil
// registerer yields a no-op instance.
func NewComplianceMetrics(reg prometheus.Registerer) *ComplianceMetrics {
	if reg == nil {
		return &ComplianceMetrics{}
	}
	m := &ComplianceMetrics{
		artifacts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifacts",
			Help:      "Licenses and AVCBs by classified status at the last refresh.",
		}, []string{"kind", "status"}),
		obligations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "obligations",
			Help:      "Conditionals by obligation status at the last refresh.",
		}, []string{"status"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_recorded_total",
			Help:      "Conditional executions recorded.",
		}, []string{"outcome"}),
		advanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "obligations_advanced_total",
			Help:      "Periodic obligations moved to their next occurrence.",
		}),
		reminders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_dispatched_total",
			Help:      "Calendar reminders queued for delivery.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_conflicts_total",
			Help:      "Writes rejected because of a held lock or stale version.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.artifacts, m.obligations, m.executions, m.advanced, m.reminders, m.conflicts)
	return m
}

// SetArtifactCounts replaces the gauge values for one artifact kind.
func (m *ComplianceMetrics) SetArtifactCounts(kind string, counts map[string]int) {
	if m == nil || m.artifacts == nil {
		return
	}
	m.artifacts.DeletePartialMatch(prometheus.Labels{"kind": kind})
	for status, n := range counts {
		m.artifacts.WithLabelValues(kind, status).Set(float64(n))
	}
}

// SetObligationCounts replaces the obligation gauge values.
func (m *ComplianceMetrics) SetObligationCounts(counts map[string]int) {
	if m == nil || m.obligations == nil {
		return
	}
	m.obligations.Reset()
	for status, n := range counts {
		m.obligations.WithLabelValues(status).Set(float64(n))
	}
}

func (m *ComplianceMetrics) IncExecution(outcome string) {
	if m == nil || m.executions == nil {
		return
	}
	m.executions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *ComplianceMetrics) IncAdvanced() {
	if m == nil || m.advanced == nil {
		return
	}
	m.advanced.Inc()
}

func (m *ComplianceMetrics) AddReminders(n int) {
	if m == nil || m.reminders == nil || n <= 0 {
		return
	}
	m.reminders.Add(float64(n))
}

// IncConflict counts a rejected write; reason is "locked" or "stale_version".
func (m *ComplianceMetrics) IncConflict(reason string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(reason)).Inc()
}
