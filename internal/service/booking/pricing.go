package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
)

// OverlapCounter is the one query ValidateAndPrice needs from the booking store.
type OverlapCounter interface {
	CountOverlapping(ctx context.Context, tourID, excludeID int64, start, end time.Time) (int, error)
}

// Quote is the result of a successful validation.
type Quote struct {
	Hours      int
	TotalPrice int64
}

// BookingRequest is a proposed inclusive date range and hour count. Hours <= 0 means
// "use the tour's default duration".
type BookingRequest struct {
	StartDate time.Time
	EndDate   time.Time
	Hours     int
}

// ValidateAndPrice decides whether req is a legal booking of tour and prices it.
// Checks run in a fixed order and the first failure is returned. excludeID is the
// booking being edited, or 0. It performs no writes.
func ValidateAndPrice(ctx context.Context, overlaps OverlapCounter, tour *domain.Tour, req BookingRequest, excludeID int64, today time.Time) (Quote, error) {
	hours, err := checkRequest(tour, req, today)
	if err != nil {
		return Quote{}, err
	}

	n, err := overlaps.CountOverlapping(ctx, tour.ID, excludeID, domain.DateOf(req.StartDate), domain.DateOf(req.EndDate))
	if err != nil {
		return Quote{}, err
	}
	if n > 0 {
		return Quote{}, fmt.Errorf("%s - %s: %w", req.StartDate.Format(domain.DateLayout), req.EndDate.Format(domain.DateLayout), domain.ErrSlotUnavailable)
	}

	return Quote{Hours: hours, TotalPrice: int64(hours) * tour.PricePerHour}, nil
}

// checkRequest runs every check that needs no I/O and returns the effective hour count.
func checkRequest(tour *domain.Tour, req BookingRequest, today time.Time) (int, error) {
	start, end, today := domain.DateOf(req.StartDate), domain.DateOf(req.EndDate), domain.DateOf(today)

	if start.Before(today) || end.Before(today) {
		return 0, domain.ErrPastDate
	}
	if start.After(end) {
		return 0, domain.ErrInvertedRange
	}
	if tour.AvailableFrom != nil && start.Before(domain.DateOf(*tour.AvailableFrom)) {
		return 0, fmt.Errorf("starts before %s: %w", tour.AvailableFrom.Format(domain.DateLayout), domain.ErrOutsideAvailability)
	}
	if tour.AvailableTo != nil && end.After(domain.DateOf(*tour.AvailableTo)) {
		return 0, fmt.Errorf("ends after %s: %w", tour.AvailableTo.Format(domain.DateLayout), domain.ErrOutsideAvailability)
	}

	hours := req.Hours
	if hours <= 0 {
		hours = tour.DurationHours
	}
	if hours <= 0 || hours > domain.MaxBookingHours {
		return 0, domain.ErrInvalidHours
	}
	return hours, nil
}
