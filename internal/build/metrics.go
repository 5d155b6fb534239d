package build

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records phase durations and outcomes. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	phaseDuration *prometheus.HistogramVec
	phaseTotal    *prometheus.CounterVec
}

// NewMetrics creates metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bzlpkg_phase_duration_seconds",
				Help:    "Duration of lifecycle phases in seconds",
				Buckets: []float64{0.01, 0.1, 1, 5, 30, 120, 600, 1800},
			},
			[]string{"phase"},
		),
		phaseTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bzlpkg_phase_total",
				Help: "Total number of lifecycle phases run",
			},
			[]string{"phase", "status"}, // success or error
		),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes the metrics in text exposition format to path.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observe(phase string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	m.phaseTotal.WithLabelValues(phase, status).Inc()
}
