package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/docudex/docudex-api/internal/core/domain"
)

// WorkerMetrics observes classification outcomes and outbound breaker state.
type WorkerMetrics struct {
	service string

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	queueLag        prometheus.Histogram
	breakerState    *prometheus.GaugeVec
}

func NewWorkerMetrics(r *Registry) *WorkerMetrics {
	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classification",
			Name:      "outcomes_total",
			Help:      "Classification tasks by outcome.",
		},
		[]string{"service", "outcome"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classification",
			Name:      "duration_seconds",
			Help:      "Time from task pickup to the status write, by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "outcome"},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "classification",
			Name:        "queue_lag_seconds",
			Help:        "Delay between enqueue and task pickup.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: prometheus.Labels{"service": r.service},
		},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	r.registry.MustRegister(processTotal, processDuration, queueLag, breakerState)

	return &WorkerMetrics{
		service:         r.service,
		processTotal:    processTotal,
		processDuration: processDuration,
		queueLag:        queueLag,
		breakerState:    breakerState,
	}
}

func (m *WorkerMetrics) ObserveClassification(outcome domain.OutcomeKind, duration, queueLag time.Duration) {
	m.processTotal.WithLabelValues(m.service, string(outcome)).Inc()
	m.processDuration.WithLabelValues(m.service, string(outcome)).Observe(duration.Seconds())
	if queueLag > 0 {
		m.queueLag.Observe(queueLag.Seconds())
	}
}

// ObserveBreakerState matches resilience.StateObserver.
func (m *WorkerMetrics) ObserveBreakerState(operation string, state gobreaker.State) {
	m.breakerState.WithLabelValues(m.service, operation).Set(float64(state))
}
