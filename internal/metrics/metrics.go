// Package metrics holds the Prometheus collectors shared by the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_events_total",
			Help: "Gateway events handed to the coordinator (count)",
		},
		[]string{"path"},
	)

	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_outcomes_total",
			Help: "Terminal outcome of each coordinator pass (count)",
		},
		[]string{"path", "outcome"},
	)

	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_product_fetch_total",
			Help: "Product page fetches by result (count)",
		},
		[]string{"result"},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shortener_product_fetch_duration_ms",
			Help:    "Product page fetch duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
	)

	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortener_in_flight_messages",
			Help: "Message ids currently claimed by a processing pass",
		},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shortener_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// Register adds every collector to the default registry.
func Register() {
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(OutcomesTotal)
	prometheus.MustRegister(FetchTotal)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(InFlight)
	prometheus.MustRegister(BreakerState)
}
