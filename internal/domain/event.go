package domain

import "time"

type BookingEventType string

const (
	BookingCreated   BookingEventType = "booking_created"
	BookingEdited    BookingEventType = "booking_edited"
	BookingCancelled BookingEventType = "booking_cancelled"
)

// BookingEvent is emitted on every booking state change and addressed to the counterparty.
type BookingEvent struct {
	ID          string           `json:"id"`
	Type        BookingEventType `json:"type"`
	BookingID   int64            `json:"booking_id"`
	TourID      int64            `json:"tour_id"`
	TourTitle   string           `json:"tour_title"`
	ActorID     int64            `json:"actor_id"`
	RecipientID int64            `json:"recipient_id"`
	RequesterID int64            `json:"requester_id"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	Hours       int              `json:"hours"`
	TotalPrice  int64            `json:"total_price"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// OutboxEvent is a serialized domain event waiting to be relayed to Kafka.
type OutboxEvent struct {
	ID          string
	EventType   string
	AggregateID string
	Payload     []byte
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	OutboxStatusNew        = "new"
	OutboxStatusProcessing = "processing"
	OutboxStatusProcessed  = "processed"
)
