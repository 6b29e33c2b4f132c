// Package observability exposes the Prometheus instruments shared across
// the backend. Everything is registered on the default registry and
// served from /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchOffers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "citystaff",
		Subsystem: "dispatch",
		Name:      "offers_total",
		Help:      "Offers extended to providers.",
	})
	DispatchAccepts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "citystaff",
		Subsystem: "dispatch",
		Name:      "accepts_total",
		Help:      "Offers accepted by providers.",
	})
	DispatchTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "citystaff",
		Subsystem: "dispatch",
		Name:      "timeouts_total",
		Help:      "Offers that expired without a response.",
	})
	DispatchNoMatch = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "citystaff",
		Subsystem: "dispatch",
		Name:      "no_match_total",
		Help:      "Dispatch rounds that ended with no provider.",
	})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "citystaff",
		Subsystem: "bookings",
		Name:      "created_total",
		Help:      "Bookings created.",
	})
	BookingsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "citystaff",
		Subsystem: "bookings",
		Name:      "completed_total",
		Help:      "Bookings completed and paid out.",
	})
	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "citystaff",
		Subsystem: "bookings",
		Name:      "cancelled_total",
		Help:      "Bookings cancelled.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "citystaff",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "citystaff",
		Subsystem: "realtime",
		Name:      "connections",
		Help:      "Open websocket connections.",
	})
)
