package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source label values: where a booking attempt came from.
const (
	SourceAPI     = "api"
	SourceWebhook = "webhook"
)

var (
	// BookingsCreated counts committed booking transactions.
	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "created_total",
			Help:      "The total number of committed booking transactions",
		},
		[]string{"source"},
	)

	// SeatsBooked counts individual seats claimed.
	SeatsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "seats_total",
			Help:      "The total number of seats booked",
		},
	)

	// BookingConflicts counts guard rejections because a seat was taken.
	BookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "conflicts_total",
			Help:      "The total number of booking attempts rejected with taken seats",
		},
		[]string{"source"},
	)

	// BookingDuration observes the guard transaction latency.
	BookingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "booking",
			Name:       "duration_seconds",
			Help:       "Time spent in the booking transaction",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"source"},
	)

	// SeatMapCache counts seat map cache lookups by result (hit, miss, error).
	SeatMapCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seatmap",
			Name:      "cache_lookups_total",
			Help:      "Seat map cache lookups by result",
		},
		[]string{"result"},
	)

	// EventsPublishFailed counts ticket events that could not be delivered.
	EventsPublishFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "events",
			Name:      "publish_failed_total",
			Help:      "The total number of ticket events that failed to publish",
		},
	)
)
