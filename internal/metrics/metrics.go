package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transition origins.
const (
	OriginDirect  = "direct"
	OriginCascade = "cascade"
	OriginCreate  = "create"
)

// Metrics holds the tracker's prometheus collectors.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	CascadeSkipped     *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
}

// NewMetrics builds the collectors and registers them with reg. A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "status_transitions_total",
			Help:      "Status changes written to the history ledger.",
		}, []string{"record_type", "status", "origin"}),
		CascadeSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "cascade_skipped_total",
			Help:      "Cascades skipped because the target record was missing.",
		}, []string{"record_type"}),
		TransitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tracker",
			Name:      "transition_duration_seconds",
			Help:      "Time spent applying a status change including its cascade.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"record_type"}),
	}

	if reg != nil {
		reg.MustRegister(m.Transitions, m.CascadeSkipped, m.TransitionDuration)
	}
	return m
}

// ObserveTransition counts one history write.
func (m *Metrics) ObserveTransition(recordType, status, origin string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(recordType, status, origin).Inc()
}

// ObserveCascadeSkipped counts a cascade whose target was absent.
func (m *Metrics) ObserveCascadeSkipped(recordType string) {
	if m == nil {
		return
	}
	m.CascadeSkipped.WithLabelValues(recordType).Inc()
}

// ObserveDuration records how long a transition took.
func (m *Metrics) ObserveDuration(recordType string, start time.Time) {
	if m == nil {
		return
	}
	m.TransitionDuration.WithLabelValues(recordType).Observe(time.Since(start).Seconds())
}
