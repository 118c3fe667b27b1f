package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking) error
	Delete(ctx context.Context, id int64) error
	CountOverlapping(ctx context.Context, tourID, excludeID int64, start, end time.Time) (int, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListByGuide(ctx context.Context, guideID int64) ([]domain.Booking, error)
	LockTour(ctx context.Context, tourID int64) error
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, user_id, tourism_id, start_date, end_date, hours, status, total_price, created_date`

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if booking.Status == "" {
		booking.Status = domain.BookingStatusPending
	}
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO bookings (user_id, tourism_id, start_date, end_date, hours, status, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_date`,
		booking.UserID, booking.TourID, booking.StartDate, booking.EndDate, booking.Hours, booking.Status, booking.TotalPrice).
		Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	return b, err
}

// Update overwrites the dates, hours and price of a booking. Status is left untouched.
func (r *PGBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	cmd, err := conn(ctx, r.db).Exec(ctx, `UPDATE bookings SET start_date=$1, end_date=$2, hours=$3, total_price=$4 WHERE id=$5`,
		booking.StartDate, booking.EndDate, booking.Hours, booking.TotalPrice, booking.ID)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("booking %d: %w", booking.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Two inclusive ranges intersect when each starts no later than the other ends.
const countOverlappingSQL = `SELECT COUNT(*) FROM bookings
	WHERE tourism_id = $1
	  AND id <> $2
	  AND status <> $3
	  AND start_date <= $4
	  AND end_date >= $5`

// CountOverlapping counts live bookings on the tour whose inclusive range intersects [start, end].
func (r *PGBookingRepository) CountOverlapping(ctx context.Context, tourID, excludeID int64, start, end time.Time) (int, error) {
	var count int
	err := conn(ctx, r.db).QueryRow(ctx, countOverlappingSQL, tourID, excludeID, domain.BookingStatusCancelled, end, start).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count overlapping bookings: %w", err)
	}
	return count, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_date DESC`, userID)
}

func (r *PGBookingRepository) ListByGuide(ctx context.Context, guideID int64) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT b.id, b.user_id, b.tourism_id, b.start_date, b.end_date, b.hours, b.status, b.total_price, b.created_date
		FROM bookings b JOIN remote_tourism t ON t.id = b.tourism_id
		WHERE t.guide_id=$1 ORDER BY b.start_date`, guideID)
}

// LockTour serializes booking writes for one tour until the surrounding transaction ends.
func (r *PGBookingRepository) LockTour(ctx context.Context, tourID int64) error {
	tx := GetTx(ctx)
	if tx == nil {
		return errors.New("lock tour: no transaction in context")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, tourID); err != nil {
		return fmt.Errorf("lock tour %d: %w", tourID, err)
	}
	return nil
}

func (r *PGBookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.TourID, &b.StartDate, &b.EndDate, &b.Hours, &b.Status, &b.TotalPrice, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
