package observability

import (
	"context"

	"github.com/aretw0/stepview/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Execution outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed" // backend ran the program to the end
	OutcomeError     = "error"     // backend reported a program error
	OutcomeFailed    = "failed"    // request failed (transport or backend rejection)
	OutcomeAborted   = "aborted"   // cancelled or superseded
)

// Metrics holds the prometheus collectors for one process.
type Metrics struct {
	Executions     *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	TraceSteps     prometheus.Histogram
	Transitions    *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepview_executions_total",
				Help: "Execution requests by language and outcome",
			},
			[]string{"language", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepview_execution_duration_seconds",
				Help:    "Round-trip duration of execution requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"language"},
		),
		TraceSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stepview_trace_steps",
			Help:    "Number of steps per received trace",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepview_playback_transitions_total",
				Help: "Playback transitions by action",
			},
			[]string{"action"},
		),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stepview_sessions_active",
			Help: "Live workbench sessions",
		}),
	}
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.Action)).Inc()
		},
		OnExecuteDone: func(_ context.Context, e *domain.ExecutionEvent) {
			outcome := OutcomeCompleted
			if e.Status == domain.StatusError {
				outcome = OutcomeError
			}
			m.Executions.WithLabelValues(string(e.Language), outcome).Inc()
			m.Duration.WithLabelValues(string(e.Language)).Observe(e.Duration.Seconds())
			m.TraceSteps.Observe(float64(e.Steps))
		},
		OnExecuteFailed: func(_ context.Context, e *domain.ExecutionEvent) {
			m.Executions.WithLabelValues(string(e.Language), OutcomeFailed).Inc()
			m.Duration.WithLabelValues(string(e.Language)).Observe(e.Duration.Seconds())
		},
		OnExecuteAborted: func(_ context.Context, e *domain.ExecutionEvent) {
			m.Executions.WithLabelValues(string(e.Language), OutcomeAborted).Inc()
		},
	}
}
