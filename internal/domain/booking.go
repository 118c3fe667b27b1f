package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// MaxBookingHours caps the hour count of a single booking.
const MaxBookingHours = 24

// DateLayout is the wire format of booking dates.
const DateLayout = "2006-01-02"

type Booking struct {
	ID         int64         `json:"id"`
	UserID     int64         `json:"user_id"`
	TourID     *int64        `json:"tour_id,omitempty"`
	StartDate  time.Time     `json:"start_date"`
	EndDate    time.Time     `json:"end_date"`
	Hours      int           `json:"hours"`
	Status     BookingStatus `json:"status"`
	TotalPrice int64         `json:"total_price"`
	CreatedAt  time.Time     `json:"created_at"`
}

// DateOf truncates t to its calendar date in t's location and returns it as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
