// Package metrics exposes Prometheus metrics for the risk service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the service on its own registry,
// so several instances (tests) never collide on the global one.
type Registry struct {
	registry *prometheus.Registry

	Calculations        *prometheus.CounterVec
	CalculationFailures *prometheus.CounterVec
	CalculationDuration *prometheus.HistogramVec
	SessionsExpired     prometheus.Counter
	ActiveSessions      prometheus.Gauge
}

// NewRegistry creates the registry with process and Go runtime collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Calculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundrisk_calculations_total",
				Help: "Total number of completed risk calculations",
			},
			[]string{"correlation"},
		),

		CalculationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundrisk_calculation_failures_total",
				Help: "Total number of rejected or failed calculations by error kind",
			},
			[]string{"kind"},
		),

		CalculationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundrisk_calculation_duration_seconds",
				Help:    "Duration of a risk calculation in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"correlation"},
		),

		SessionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fundrisk_sessions_expired_total",
				Help: "Total number of sessions removed by the expiry sweep",
			},
		),

		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundrisk_active_sessions",
				Help: "Number of live correlation sessions",
			},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Calculations,
		r.CalculationFailures,
		r.CalculationDuration,
		r.SessionsExpired,
		r.ActiveSessions,
	)
	return r
}

// ObserveCalculation records one successful calculation.
func (r *Registry) ObserveCalculation(correlation bool, elapsed time.Duration) {
	label := strconv.FormatBool(correlation)
	r.Calculations.WithLabelValues(label).Inc()
	r.CalculationDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// ObserveFailure records a rejected calculation.
func (r *Registry) ObserveFailure(kind string) {
	r.CalculationFailures.WithLabelValues(kind).Inc()
}

// ObserveSweep records the outcome of a session expiry sweep.
func (r *Registry) ObserveSweep(deleted int64, remaining int) {
	r.SessionsExpired.Add(float64(deleted))
	r.ActiveSessions.Set(float64(remaining))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
