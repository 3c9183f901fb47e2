package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the validation service counters. Each server registers its own
// set so tests can use a private registry.
type Metrics struct {
	Connections prometheus.Gauge
	Requests    *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	Diagnostics *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Blocks      prometheus.Histogram
	Repairs     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "shipforge_ws_connections",
			Help: "Open validation websocket connections",
		}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shipforge_validate_requests_total",
			Help: "VALIDATE requests by outcome",
		}, []string{"outcome"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shipforge_protocol_errors_total",
			Help: "ERROR replies by code",
		}, []string{"code"}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shipforge_diagnostics_total",
			Help: "Reported diagnostics by code",
		}, []string{"code"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shipforge_validate_duration_seconds",
			Help:    "Time to validate one structure",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"stage"}),
		Blocks: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shipforge_structure_blocks",
			Help:    "Blocks per validated structure",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		}),
		Repairs: f.NewCounter(prometheus.CounterOpts{
			Name: "shipforge_repairs_proposed_total",
			Help: "Repair fillers proposed or applied",
		}),
	}
}
