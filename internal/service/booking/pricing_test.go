package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

// memoryBookings answers overlap queries the same way the Postgres repository does.
type memoryBookings struct {
	items []domain.Booking
	err   error
	calls int
}

func (m *memoryBookings) CountOverlapping(_ context.Context, tourID, excludeID int64, start, end time.Time) (int, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, b := range m.items {
		if b.TourID == nil || *b.TourID != tourID || b.ID == excludeID || b.Status == domain.BookingStatusCancelled {
			continue
		}
		if !b.StartDate.After(end) && !b.EndDate.Before(start) {
			n++
		}
	}
	return n, nil
}

func tourFixture() *domain.Tour {
	return &domain.Tour{
		ID:            10,
		GuideID:       2,
		Title:         "Old Town walk",
		PricePerHour:  1500,
		DurationHours: 3,
		IsActive:      true,
	}
}

func existing(id int64, tourID int64, start, end string, status domain.BookingStatus) domain.Booking {
	return domain.Booking{ID: id, UserID: 5, TourID: &tourID, StartDate: day(start), EndDate: day(end), Hours: 2, Status: status}
}

func TestValidateAndPrice_RejectionOrder(t *testing.T) {
	today := day("2024-06-01")
	tour := tourFixture()
	tour.AvailableFrom = dayPtr("2024-06-05")
	tour.AvailableTo = dayPtr("2024-06-30")

	tests := []struct {
		name    string
		req     BookingRequest
		wantErr error
	}{
		{"start in the past", BookingRequest{StartDate: day("2024-05-31"), EndDate: day("2024-06-10")}, domain.ErrPastDate},
		{"end in the past", BookingRequest{StartDate: day("2024-06-10"), EndDate: day("2024-05-20")}, domain.ErrPastDate},
		{"inverted range", BookingRequest{StartDate: day("2024-06-12"), EndDate: day("2024-06-10"), Hours: 99}, domain.ErrInvertedRange},
		{"before availability", BookingRequest{StartDate: day("2024-06-04"), EndDate: day("2024-06-10")}, domain.ErrOutsideAvailability},
		{"after availability", BookingRequest{StartDate: day("2024-06-20"), EndDate: day("2024-07-01")}, domain.ErrOutsideAvailability},
		{"too many hours", BookingRequest{StartDate: day("2024-06-10"), EndDate: day("2024-06-10"), Hours: 25}, domain.ErrInvalidHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryBookings{}
			_, err := ValidateAndPrice(context.Background(), store, tour, tt.req, 0, today)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, store.calls, "overlap query must not run after a local rejection")
		})
	}
}

func TestValidateAndPrice_TodayIsAllowed(t *testing.T) {
	today := day("2024-06-01")
	quote, err := ValidateAndPrice(context.Background(), &memoryBookings{}, tourFixture(), BookingRequest{
		StartDate: today,
		EndDate:   today,
		Hours:     1,
	}, 0, today.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Quote{Hours: 1, TotalPrice: 1500}, quote)
}

func TestValidateAndPrice_InsideWindow(t *testing.T) {
	tour := tourFixture()
	tour.AvailableFrom = dayPtr("2024-06-05")
	tour.AvailableTo = dayPtr("2024-06-30")

	quote, err := ValidateAndPrice(context.Background(), &memoryBookings{}, tour, BookingRequest{
		StartDate: day("2024-06-05"),
		EndDate:   day("2024-06-30"),
		Hours:     4,
	}, 0, day("2024-06-01"))
	require.NoError(t, err)
	assert.Equal(t, 4, quote.Hours)
	assert.Equal(t, int64(6000), quote.TotalPrice)
}

func TestValidateAndPrice_DefaultHours(t *testing.T) {
	for _, hours := range []int{0, -3} {
		quote, err := ValidateAndPrice(context.Background(), &memoryBookings{}, tourFixture(), BookingRequest{
			StartDate: day("2024-06-10"),
			EndDate:   day("2024-06-11"),
			Hours:     hours,
		}, 0, day("2024-06-01"))
		require.NoError(t, err)
		assert.Equal(t, 3, quote.Hours)
		assert.Equal(t, int64(4500), quote.TotalPrice)
	}
}

func TestValidateAndPrice_Overlap(t *testing.T) {
	today := day("2024-06-01")
	tour := tourFixture()
	store := &memoryBookings{items: []domain.Booking{
		existing(1, tour.ID, "2024-06-10", "2024-06-15", domain.BookingStatusPending),
	}}

	tests := []struct {
		name    string
		start   string
		end     string
		wantErr error
	}{
		{"intersects tail", "2024-06-14", "2024-06-20", domain.ErrSlotUnavailable},
		{"adjacent after", "2024-06-16", "2024-06-20", nil},
		{"touches last day", "2024-06-15", "2024-06-20", domain.ErrSlotUnavailable},
		{"touches first day", "2024-06-05", "2024-06-10", domain.ErrSlotUnavailable},
		{"adjacent before", "2024-06-05", "2024-06-09", nil},
		{"contains", "2024-06-09", "2024-06-16", domain.ErrSlotUnavailable},
		{"inside", "2024-06-11", "2024-06-12", domain.ErrSlotUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAndPrice(context.Background(), store, tour, BookingRequest{
				StartDate: day(tt.start),
				EndDate:   day(tt.end),
				Hours:     2,
			}, 0, today)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAndPrice_ExcludesSelfAndCancelled(t *testing.T) {
	tour := tourFixture()
	store := &memoryBookings{items: []domain.Booking{
		existing(1, tour.ID, "2024-06-10", "2024-06-15", domain.BookingStatusPending),
		existing(2, tour.ID, "2024-06-20", "2024-06-25", domain.BookingStatusCancelled),
		existing(3, 99, "2024-06-10", "2024-06-15", domain.BookingStatusPending),
	}}
	req := BookingRequest{StartDate: day("2024-06-10"), EndDate: day("2024-06-15"), Hours: 2}

	_, err := ValidateAndPrice(context.Background(), store, tour, req, 1, day("2024-06-01"))
	assert.NoError(t, err, "a booking must not collide with itself")

	_, err = ValidateAndPrice(context.Background(), store, tour, BookingRequest{StartDate: day("2024-06-21"), EndDate: day("2024-06-22")}, 0, day("2024-06-01"))
	assert.NoError(t, err, "cancelled bookings do not block the slot")
}

func TestValidateAndPrice_StoreError(t *testing.T) {
	boom := errors.New("db down")
	_, err := ValidateAndPrice(context.Background(), &memoryBookings{err: boom}, tourFixture(), BookingRequest{
		StartDate: day("2024-06-10"),
		EndDate:   day("2024-06-10"),
	}, 0, day("2024-06-01"))
	assert.ErrorIs(t, err, boom)
}
