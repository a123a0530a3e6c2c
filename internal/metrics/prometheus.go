// Package metrics defines the Prometheus collectors for the conversation
// core and the control-plane server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the conversation core.
type Metrics struct {
	// Gate metrics
	SignalsAllowed prometheus.Counter
	SignalsDropped prometheus.Counter

	// Adapter metrics
	ItemsIngested  *prometheus.CounterVec
	ItemsDiscarded *prometheus.CounterVec

	// Arbiter metrics
	TurnsAdmitted       *prometheus.CounterVec
	TurnsReleased       *prometheus.CounterVec
	TurnsRejected       prometheus.Counter
	QueueDepth          *prometheus.GaugeVec
	WatchdogExpirations prometheus.Counter
	TurnDuration        prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		SignalsAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streambuddy_gate_signals_allowed_total",
			Help: "Total number of content signals the input gate forwarded",
		}),
		SignalsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streambuddy_gate_signals_dropped_total",
			Help: "Total number of content signals the input gate dropped",
		}),

		ItemsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streambuddy_adapter_items_ingested_total",
			Help: "Total number of items accepted by a source adapter",
		}, []string{"origin"}),
		ItemsDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streambuddy_adapter_items_discarded_total",
			Help: "Total number of buffered items discarded on adapter shutdown",
		}, []string{"origin"}),

		TurnsAdmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streambuddy_arbiter_turns_admitted_total",
			Help: "Total number of turns admitted into an arbiter queue",
		}, []string{"origin"}),
		TurnsReleased: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streambuddy_arbiter_turns_released_total",
			Help: "Total number of turns released to the downstream consumer",
		}, []string{"origin"}),
		TurnsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streambuddy_arbiter_turns_rejected_total",
			Help: "Total number of malformed turns rejected at admission",
		}),
		QueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streambuddy_arbiter_queue_depth",
			Help: "Current number of pending turns per origin queue",
		}, []string{"origin"}),
		WatchdogExpirations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streambuddy_arbiter_watchdog_expirations_total",
			Help: "Total number of stalled turns recovered by the watchdog",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streambuddy_arbiter_turn_duration_seconds",
			Help:    "Time from turn release to completion signal",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streambuddy_http_requests_total",
			Help: "Total number of control-plane HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streambuddy_http_request_duration_seconds",
			Help:    "Control-plane HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}
