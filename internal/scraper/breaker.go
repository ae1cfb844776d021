package scraper

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aiotter/discord-amazon-url-shortener/internal/metrics"
)

// newBreaker trips after repeated page failures (typically the vendor
// serving a captcha or 503s) and fails fetches fast until it half-opens.
// Open-state failures are not retried; the card is passed through unchanged.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	metrics.BreakerState.WithLabelValues(name).Set(float64(cb.State()))
	return cb
}
