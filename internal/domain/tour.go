package domain

import "time"

// Tour is a bookable remote-guided tour offered by a guide.
type Tour struct {
	ID            int64      `json:"id"`
	GuideID       int64      `json:"guide_id"`
	City          string     `json:"city"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	PricePerHour  int64      `json:"price_per_hour"`
	DurationHours int        `json:"duration_hours"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`
	AvailableTo   *time.Time `json:"available_to,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
}

type TourFilter struct {
	Query string
	City  string
}
