package recovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FaultsObserved tracks reported faults per actor, kind and severity
	FaultsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_faults_total",
			Help: "Total number of faults reported to the engine",
		},
		[]string{"actor", "fault_kind", "severity"},
	)

	// Decisions tracks recovery decisions per strategy and result
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_recovery_decisions_total",
			Help: "Total number of recovery decisions returned",
		},
		[]string{"strategy", "result"},
	)

	// BreakerTrips tracks closed-to-open breaker transitions
	BreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"actor", "fault_kind"},
	)

	// OpenBreakers tracks the number of currently open breakers
	OpenBreakers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aegis_breakers_open",
			Help: "Number of circuit breakers currently open",
		},
	)

	// HandlerDuration tracks strategy handler latency
	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aegis_handler_duration_seconds",
			Help:    "Recovery strategy handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"fault_kind"},
	)
)
