// Package metrics exposes Prometheus metrics for the odds-composer service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects ingestion and fan-out counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion metrics
	IngestTotal  *prometheus.CounterVec
	IngestErrors *prometheus.CounterVec

	// Fan-out metrics
	BroadcastsTotal   *prometheus.CounterVec
	BroadcastFailures *prometheus.CounterVec

	// Connection metrics
	ActiveConnections *prometheus.GaugeVec
}

// New creates a metrics collector with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		IngestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odds_composer_ingest_total",
				Help: "Total number of ingested payloads",
			},
			[]string{"kind"},
		),
		IngestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odds_composer_ingest_errors_total",
				Help: "Total number of rejected payloads",
			},
			[]string{"kind"},
		),
		BroadcastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odds_composer_broadcasts_total",
				Help: "Total number of messages delivered to clients",
			},
			[]string{"transport"},
		),
		BroadcastFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odds_composer_broadcast_failures_total",
				Help: "Total number of client writes that failed and pruned the client",
			},
			[]string{"transport"},
		),
		ActiveConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "odds_composer_active_connections",
				Help: "Currently connected clients",
			},
			[]string{"transport"},
		),
	}

	registry.MustRegister(
		m.IngestTotal,
		m.IngestErrors,
		m.BroadcastsTotal,
		m.BroadcastFailures,
		m.ActiveConnections,
	)

	return m
}

// Handler returns the HTTP handler serving this collector's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
