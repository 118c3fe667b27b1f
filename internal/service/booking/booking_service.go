package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/VK7Cuber/Room2room-Tour/internal/metrics"
	"github.com/VK7Cuber/Room2room-Tour/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	EditBooking(ctx context.Context, input EditBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, actorID, bookingID int64) (*domain.Booking, error)
	GetBooking(ctx context.Context, actorID, bookingID int64) (*domain.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListGuideBookings(ctx context.Context, guideID int64) ([]domain.Booking, error)
}

type CreateBookingInput struct {
	ActorID   int64
	TourID    int64
	StartDate time.Time
	EndDate   time.Time
	Hours     int
}

type EditBookingInput struct {
	ActorID   int64
	BookingID int64
	StartDate time.Time
	EndDate   time.Time
	Hours     int
}

type BookingService struct {
	bookings repository.BookingRepository
	tours    repository.TourRepository
	outbox   repository.OutboxRepository
	tx       repository.Transactor
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location
}

type BookingServiceOption func(*BookingService)

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

// WithLocation sets the timezone in which "today" is evaluated.
func WithLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		s.location = loc
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	tours repository.TourRepository,
	outbox repository.OutboxRepository,
	tx repository.Transactor,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings: bookings,
		tours:    tours,
		outbox:   outbox,
		tx:       tx,
		logger:   zap.NewNop(),
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) today() time.Time {
	return domain.DateOf(s.now().In(s.location))
}

// CreateBooking books tour for the actor. The overlap check, the insert and the
// notification event share one transaction under a per-tour lock.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (created *domain.Booking, err error) {
	defer func() { observe("create", err) }()

	var booking *domain.Booking
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		tour, err := s.tours.GetByID(ctx, input.TourID)
		if err != nil {
			return err
		}
		if !tour.IsActive {
			return fmt.Errorf("tour %d is inactive: %w", tour.ID, domain.ErrNotFound)
		}
		if tour.GuideID == input.ActorID {
			return fmt.Errorf("guide cannot book own tour: %w", domain.ErrForbidden)
		}

		if err := s.bookings.LockTour(ctx, tour.ID); err != nil {
			return err
		}

		quote, err := ValidateAndPrice(ctx, s.bookings, tour, BookingRequest{
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			Hours:     input.Hours,
		}, 0, s.today())
		if err != nil {
			return err
		}

		tourID := tour.ID
		booking = &domain.Booking{
			UserID:     input.ActorID,
			TourID:     &tourID,
			StartDate:  domain.DateOf(input.StartDate),
			EndDate:    domain.DateOf(input.EndDate),
			Hours:      quote.Hours,
			Status:     domain.BookingStatusPending,
			TotalPrice: quote.TotalPrice,
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}

		return s.appendEvent(ctx, domain.BookingCreated, booking, tour, input.ActorID, tour.GuideID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("tour_id", input.TourID),
		zap.Int64("user_id", input.ActorID),
		zap.Int64("total_price", booking.TotalPrice))
	return booking, nil
}

// EditBooking lets the tour's guide move a booking and change its hours. The price is
// recomputed from the tour's current hourly rate.
func (s *BookingService) EditBooking(ctx context.Context, input EditBookingInput) (edited *domain.Booking, err error) {
	defer func() { observe("edit", err) }()

	var booking *domain.Booking
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.bookings.GetByID(ctx, input.BookingID)
		if err != nil {
			return err
		}
		tour, err := s.bookingTour(ctx, current)
		if err != nil {
			return err
		}
		if tour == nil {
			return fmt.Errorf("tour of booking %d: %w", current.ID, domain.ErrNotFound)
		}
		if tour.GuideID != input.ActorID {
			return fmt.Errorf("only the guide may edit booking %d: %w", current.ID, domain.ErrForbidden)
		}

		if err := s.bookings.LockTour(ctx, tour.ID); err != nil {
			return err
		}

		quote, err := ValidateAndPrice(ctx, s.bookings, tour, BookingRequest{
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			Hours:     input.Hours,
		}, current.ID, s.today())
		if err != nil {
			return err
		}

		current.StartDate = domain.DateOf(input.StartDate)
		current.EndDate = domain.DateOf(input.EndDate)
		current.Hours = quote.Hours
		current.TotalPrice = quote.TotalPrice
		if err := s.bookings.Update(ctx, current); err != nil {
			return err
		}

		booking = current
		return s.appendEvent(ctx, domain.BookingEdited, current, tour, input.ActorID, current.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking edited", zap.Int64("booking_id", booking.ID), zap.Int64("guide_id", input.ActorID))
	return booking, nil
}

// CancelBooking deletes a booking on behalf of its requester or the tour's guide and
// notifies the other party. The row is removed; no cancelled status is written.
func (s *BookingService) CancelBooking(ctx context.Context, actorID, bookingID int64) (cancelled *domain.Booking, err error) {
	defer func() { observe("cancel", err) }()

	var booking *domain.Booking
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		tour, err := s.bookingTour(ctx, current)
		if err != nil {
			return err
		}

		counterparty, ok := counterpartyOf(current, tour, actorID)
		if !ok {
			return fmt.Errorf("user %d may not cancel booking %d: %w", actorID, bookingID, domain.ErrForbidden)
		}

		if counterparty != 0 {
			if err := s.appendEvent(ctx, domain.BookingCancelled, current, tour, actorID, counterparty); err != nil {
				return err
			}
		}

		if err := s.bookings.Delete(ctx, current.ID); err != nil {
			return err
		}
		booking = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled", zap.Int64("booking_id", bookingID), zap.Int64("actor_id", actorID))
	return booking, nil
}

// GetBooking returns a booking visible to its requester or the tour's guide.
func (s *BookingService) GetBooking(ctx context.Context, actorID, bookingID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	tour, err := s.bookingTour(ctx, booking)
	if err != nil {
		return nil, err
	}
	if _, ok := counterpartyOf(booking, tour, actorID); !ok {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrForbidden)
	}
	return booking, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) ListGuideBookings(ctx context.Context, guideID int64) ([]domain.Booking, error) {
	return s.bookings.ListByGuide(ctx, guideID)
}

// bookingTour loads the booking's tour. It returns nil, nil when the tour is gone.
func (s *BookingService) bookingTour(ctx context.Context, b *domain.Booking) (*domain.Tour, error) {
	if b.TourID == nil {
		return nil, nil
	}
	tour, err := s.tours.GetByID(ctx, *b.TourID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return tour, err
}

// counterpartyOf returns the party to notify when actorID acts on b. ok is false when the
// actor is neither the requester nor the guide. A zero counterparty means nobody is left to notify.
func counterpartyOf(b *domain.Booking, tour *domain.Tour, actorID int64) (int64, bool) {
	var guideID int64
	if tour != nil {
		guideID = tour.GuideID
	}
	switch actorID {
	case b.UserID:
		if guideID == actorID {
			return 0, true
		}
		return guideID, true
	case guideID:
		if guideID == 0 {
			return 0, false
		}
		return b.UserID, true
	default:
		return 0, false
	}
}

func (s *BookingService) appendEvent(ctx context.Context, eventType domain.BookingEventType, b *domain.Booking, tour *domain.Tour, actorID, recipientID int64) error {
	event := domain.BookingEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		BookingID:   b.ID,
		ActorID:     actorID,
		RecipientID: recipientID,
		RequesterID: b.UserID,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		Hours:       b.Hours,
		TotalPrice:  b.TotalPrice,
		OccurredAt:  s.now().UTC(),
	}
	if tour != nil {
		event.TourID = tour.ID
		event.TourTitle = tour.Title
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	return s.outbox.Create(ctx, &domain.OutboxEvent{
		ID:          event.ID,
		EventType:   string(eventType),
		AggregateID: strconv.FormatInt(b.ID, 10),
		Payload:     payload,
		Status:      domain.OutboxStatusNew,
		CreatedAt:   event.OccurredAt,
	})
}

func observe(operation string, err error) {
	metrics.ObserveBooking(operation, reasonOf(err))
}

func reasonOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrPastDate):
		return "past_date"
	case errors.Is(err, domain.ErrInvertedRange):
		return "inverted_range"
	case errors.Is(err, domain.ErrOutsideAvailability):
		return "outside_availability_window"
	case errors.Is(err, domain.ErrInvalidHours):
		return "invalid_hours"
	case errors.Is(err, domain.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

var _ BookingUseCase = (*BookingService)(nil)
