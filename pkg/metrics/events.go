package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics records outcomes for handled platform events.
type EventMetrics struct {
	duration *prometheus.HistogramVec
	handled  *prometheus.CounterVec
}

// NewEventMetrics registers the event metrics on the provided registerer.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_duration_seconds",
		Help:    "Duration of platform event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_handled",
		Help: "Handled platform events by kind and outcome.",
	}, []string{"kind", "outcome"})
	reg.MustRegister(duration, handled)
	return &EventMetrics{
		duration: duration,
		handled:  handled,
	}
}

// ObserveDuration records handling time for the given event kind.
func (e *EventMetrics) ObserveDuration(kind string, duration time.Duration) {
	if e == nil || e.duration == nil {
		return
	}
	e.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncHandled increments the handled counter for the kind/outcome pair.
func (e *EventMetrics) IncHandled(kind, outcome string) {
	if e == nil || e.handled == nil {
		return
	}
	e.handled.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
