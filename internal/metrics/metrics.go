package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_operations_total",
		Help: "Booking operations by operation and result",
	}, []string{"operation", "result"})

	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events published to Kafka",
	})
	OutboxPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_errors_total",
		Help: "Failed outbox publish attempts",
	})

	NotificationsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_stored_total",
		Help: "Booking notifications written as messages, by event type",
	}, []string{"event_type"})
	ReviewsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tour_reviews_created_total",
		Help: "Tour reviews stored",
	})

	NotificationsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_duplicate_total",
		Help: "Booking events skipped because they were already handled",
	})
)

// ObserveBooking records the outcome of a booking operation; reason is "ok" on success.
func ObserveBooking(operation, reason string) {
	BookingOperations.WithLabelValues(operation, reason).Inc()
}
