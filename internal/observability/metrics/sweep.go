package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type SweepMetrics struct {
	service string

	runsTotal        *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	duration         prometheus.Histogram
	lastSuccess      prometheus.Gauge
}

func NewSweepMetrics(r *Registry) *SweepMetrics {
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Status sweep runs by result.",
		},
		[]string{"service", "result"},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "transitions_total",
			Help:      "Documents moved by the sweep, by target status.",
		},
		[]string{"service", "status"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "sweep",
			Name:        "duration_seconds",
			Help:        "Status sweep duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"service": r.service},
		},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "sweep",
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last successful sweep.",
			ConstLabels: prometheus.Labels{"service": r.service},
		},
	)

	r.registry.MustRegister(runsTotal, transitionsTotal, duration, lastSuccess)

	return &SweepMetrics{
		service:          r.service,
		runsTotal:        runsTotal,
		transitionsTotal: transitionsTotal,
		duration:         duration,
		lastSuccess:      lastSuccess,
	}
}

func (m *SweepMetrics) ObserveSweep(result domain.SweepResult, duration time.Duration, err error) {
	m.duration.Observe(duration.Seconds())
	if err != nil {
		m.runsTotal.WithLabelValues(m.service, "error").Inc()
		return
	}
	m.runsTotal.WithLabelValues(m.service, "success").Inc()
	m.transitionsTotal.WithLabelValues(m.service, string(domain.StatusExpired)).Add(float64(len(result.Expired)))
	m.transitionsTotal.WithLabelValues(m.service, string(domain.StatusExpiringSoon)).Add(float64(len(result.ExpiringSoon)))
	m.transitionsTotal.WithLabelValues(m.service, string(domain.StatusCurrent)).Add(float64(len(result.Current)))
	m.lastSuccess.SetToCurrentTime()
}
