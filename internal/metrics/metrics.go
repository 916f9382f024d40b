// Package metrics provides Prometheus metrics for the roster service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

const namespace = "roster"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	PlansApplied     *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	TeamBalance      *prometheus.GaugeVec
	LoadFailures     *prometheus.CounterVec
	PartialApplies   prometheus.Counter
	BalanceDrift     *prometheus.GaugeVec
	MisplacedPlayers prometheus.Gauge

	// Infrastructure metrics
	BreakerState    *prometheus.GaugeVec
	HTTPDuration    *prometheus.HistogramVec
	EventsPublished *prometheus.CounterVec
}

// New registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PlansApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "plans_applied_total",
			Help:      "Roster changes written, by plan kind",
		}, []string{"kind"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rejections_total",
			Help:      "Commands rejected before any write, by reason",
		}, []string{"reason"}),
		TeamBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "team_balance",
			Help:      "Current in-memory balance per active team",
		}, []string{"team"}),
		LoadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "load_failures_total",
			Help:      "Failed reads during load, by source",
		}, []string{"source"}),
		PartialApplies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "partial_applies_total",
			Help:      "Multi-step writes that failed after at least one step succeeded",
		}),
		BalanceDrift: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "balance_drift",
			Help:      "Balance minus opening balance plus ledger sum, per team",
		}, []string{"team"}),
		MisplacedPlayers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "misplaced_players",
			Help:      "Players whose group contradicts their latest transfer transaction",
		}),

		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"breaker"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Roster events published, by sink and outcome",
		}, []string{"sink", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBreaker is shaped to be used as a gobreaker state change callback.
func (m *Metrics) ObserveBreaker(name string, _, to gobreaker.State) {
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.BreakerState.WithLabelValues(name).Set(v)
}
