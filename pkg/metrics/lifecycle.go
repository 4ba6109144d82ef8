package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics records request transitions, tool assignment churn and
// event publishing outcomes for the dashboards.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
	assignments *prometheus.CounterVec
	events      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "request_transitions_total",
		Help: "Request state transitions by kind and outcome status.",
	}, []string{"kind", "status"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tool_assignments_total",
		Help: "Tool assignment operations by action.",
	}, []string{"action"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "published_events_total",
		Help: "Published inventory events by name and result.",
	}, []string{"event", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "operation_duration_seconds",
		Help:    "Duration of service operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(transitions, assignments, events, duration)
	return &LifecycleMetrics{
		transitions: transitions,
		assignments: assignments,
		events:      events,
		duration:    duration,
	}
}

// IncTransition increments the transition counter for the request kind.
func (m *LifecycleMetrics) IncTransition(kind, status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}

// IncAssignment increments the assignment counter for the named action.
func (m *LifecycleMetrics) IncAssignment(action string) {
	if m == nil || m.assignments == nil {
		return
	}
	m.assignments.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncEvent increments the published-event counter.
func (m *LifecycleMetrics) IncEvent(event, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}

// Timer starts a clock for the named operation. The returned func
// records the elapsed time; use it with defer at the top of an
// operation.
func (m *LifecycleMetrics) Timer(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveDuration(operation, time.Since(start))
	}
}

// ObserveDuration records the duration for the named operation.
func (m *LifecycleMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
