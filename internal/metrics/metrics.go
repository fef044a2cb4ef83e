// Package metrics provides Prometheus instrumentation for the chat broker.
// It exposes gauges for connection, session, and room counts, counters for
// message throughput, and a histogram for broadcast fanout latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parley_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// SessionsTotal tracks the current number of joined user sessions.
	SessionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parley_sessions_total",
		Help: "Current number of joined user sessions",
	})

	// RoomsTotal tracks the current number of rooms (rooms are never destroyed).
	RoomsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parley_rooms_total",
		Help: "Current number of rooms",
	})

	// MessagesTotal counts committed and rejected messages, labeled by kind:
	// "room", "private", "blocked", or "rate_limited".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_messages_total",
		Help: "Total number of messages processed",
	}, []string{"kind"})

	// ReceiptsTotal counts read receipts and reactions, labeled by kind:
	// "read" or "react".
	ReceiptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_receipts_total",
		Help: "Total number of read receipts and reactions applied",
	}, []string{"kind"})

	// BroadcastFanout records the number of recipients per broadcast.
	BroadcastFanout = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parley_broadcast_fanout",
		Help:    "Number of recipients per broadcast",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		SessionsTotal,
		RoomsTotal,
		MessagesTotal,
		ReceiptsTotal,
		BroadcastFanout,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
