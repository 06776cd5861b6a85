// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Connection metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomchat_active_connections",
			Help: "WebSocket connections currently registered with the hub",
		},
	)

	RoomMembers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roomchat_room_members",
			Help: "Current member count per room",
		},
		[]string{"room"},
	)

	// Event metrics
	InboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_inbound_events_total",
			Help: "Inbound client events by name",
		},
		[]string{"event"},
	)

	OutboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_outbound_events_total",
			Help: "Events queued for delivery by name",
		},
		[]string{"event"},
	)

	DroppedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_dropped_deliveries_total",
			Help: "Events dropped because the recipient was gone or its buffer was full",
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_rate_limit_hits_total",
			Help: "Inbound frames discarded by the per-connection rate limiter",
		},
	)
)
