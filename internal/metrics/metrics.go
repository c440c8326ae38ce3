package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "soko"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Business metrics
var (
	ListingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_created_total",
			Help:      "Total number of listings created",
		},
		[]string{"plan"},
	)

	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Total number of listing submissions rejected by gating",
		},
		[]string{"reason"},
	)

	AddOnsPurchased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "add_ons_purchased_total",
			Help:      "Total number of add-on units purchased",
		},
		[]string{"type"},
	)

	PaymentsTransitioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_transitioned_total",
			Help:      "Total number of payment status transitions",
		},
		[]string{"to_status"},
	)

	FeaturedFlagsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "featured_flags_swept_total",
			Help:      "Total number of stale featured flags cleared by the sweeper",
		},
	)
)

// Moderation queue gauges, refreshed by re-querying listing state.
var (
	ModerationPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "moderation_pending_listings",
			Help:      "Current number of listings awaiting moderation",
		},
	)

	ModerationActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "moderation_active_listings",
			Help:      "Current number of publicly visible listings",
		},
	)

	ModerationFlagged = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "moderation_flagged_listings",
			Help:      "Current number of flagged listings under review",
		},
	)
)
