package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics records delayed-deletion outcomes.
type SchedulerMetrics struct {
	fired       *prometheus.CounterVec
	canceled    *prometheus.CounterVec
	alreadyGone *prometheus.CounterVec
}

// NewSchedulerMetrics registers the scheduler metrics on the provided
// registerer.
func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	if reg == nil {
		return &SchedulerMetrics{}
	}
	fired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduled_delete_fired",
		Help: "Delayed deletions that executed.",
	}, []string{"kind"})
	canceled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduled_delete_canceled",
		Help: "Delayed deletions canceled before firing.",
	}, []string{"kind"})
	alreadyGone := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduled_delete_already_gone",
		Help: "Delayed deletions that found the resource already removed.",
	}, []string{"kind"})
	reg.MustRegister(fired, canceled, alreadyGone)
	return &SchedulerMetrics{
		fired:       fired,
		canceled:    canceled,
		alreadyGone: alreadyGone,
	}
}

// IncFired counts an executed deletion for the channel kind.
func (s *SchedulerMetrics) IncFired(kind string) {
	if s == nil || s.fired == nil {
		return
	}
	s.fired.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncCanceled counts a deletion canceled by reopen.
func (s *SchedulerMetrics) IncCanceled(kind string) {
	if s == nil || s.canceled == nil {
		return
	}
	s.canceled.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncAlreadyGone counts a deletion that was a no-op success.
func (s *SchedulerMetrics) IncAlreadyGone(kind string) {
	if s == nil || s.alreadyGone == nil {
		return
	}
	s.alreadyGone.WithLabelValues(normalizeLabel(kind)).Inc()
}
