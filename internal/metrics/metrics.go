// Package metrics exposes Prometheus collectors for the collaboration relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes recorded in CallsTotal.
const (
	OutcomeAnswered     = "answered"
	OutcomeRejected     = "rejected"
	OutcomeCancelled    = "cancelled"
	OutcomeTimeout      = "timeout"
	OutcomeEnded        = "ended"
	OutcomeDisconnected = "disconnected"
	OutcomeOffline      = "offline"
	OutcomeShutdown     = "shutdown"
)

var (
	// Connections tracks live transport connections registered with the hub.
	Connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "collab",
			Name:      "connections",
			Help:      "Number of live connections registered with the hub",
		},
	)

	// Rooms tracks rooms that currently hold at least one connection.
	Rooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "collab",
			Name:      "rooms",
			Help:      "Number of rooms with at least one connection",
		},
	)

	// ActiveCalls tracks call sessions that are ringing or connected.
	ActiveCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "collab",
			Name:      "active_calls",
			Help:      "Number of ringing or connected call sessions",
		},
	)

	// EventsTotal counts inbound protocol events handled by the hub.
	// Labels: event (join_room, chat_broadcast, call_initiate, ...)
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collab",
			Name:      "events_total",
			Help:      "Total number of inbound events processed by the hub",
		},
		[]string{"event"},
	)

	// CallsTotal counts call sessions by terminal outcome.
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collab",
			Name:      "calls_total",
			Help:      "Total number of call attempts by outcome",
		},
		[]string{"outcome"},
	)

	// EvictionsTotal counts connections dropped because their outbound queue was full.
	EvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "collab",
			Name:      "evictions_total",
			Help:      "Total number of slow connections evicted by the hub",
		},
	)
)
