// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PollCycles counts poll loop ticks by outcome (ok, fetch_error,
	// parse_error, skipped_closed).
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_poll_cycles_total",
		Help: "Poll cycles executed, labeled by outcome.",
	}, []string{"user", "outcome"})

	// PollDuration observes end-to-end cycle latency.
	PollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_poll_duration_seconds",
		Help:    "Duration of a full poll cycle.",
		Buckets: prometheus.DefBuckets,
	}, []string{"user"})

	// SignalsConfirmed counts confirmed Greek-signature signals.
	SignalsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_signals_confirmed_total",
		Help: "Confirmed signals, labeled by position.",
	}, []string{"user", "position"})

	// ActiveSessions tracks live poll loops.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_active_sessions",
		Help: "Number of running user sessions.",
	})

	// Subscribers tracks connected push subscribers.
	Subscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feed_subscribers",
		Help: "Connected subscribers per user.",
	}, []string{"user"})

	// BroadcastMessages counts state payloads fanned out.
	BroadcastMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_broadcast_messages_total",
		Help: "Composite states broadcast to subscribers.",
	}, []string{"user"})
)

// Handler serves the registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
