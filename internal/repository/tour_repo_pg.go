package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TourRepository interface {
	List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error)
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
}

type PGTourRepository struct {
	db *pgxpool.Pool
}

func NewTourRepository(db *pgxpool.Pool) TourRepository {
	return &PGTourRepository{db: db}
}

const tourColumns = `id, guide_id, COALESCE(city, ''), title, COALESCE(description, ''), price_per_hour, duration_hours, available_from, available_to, is_active, created_date`

func (r *PGTourRepository) List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error) {
	query, args := buildTourListQuery(filter)
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tours: %w", err)
	}
	defer rows.Close()

	tours := make([]domain.Tour, 0)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, *t)
	}
	return tours, rows.Err()
}

func (r *PGTourRepository) GetByID(ctx context.Context, id int64) (*domain.Tour, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+tourColumns+` FROM remote_tourism WHERE id=$1`, id)
	t, err := scanTour(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tour %d: %w", id, domain.ErrNotFound)
	}
	return t, err
}

func buildTourListQuery(filter domain.TourFilter) (string, []any) {
	conditions := []string{"is_active = TRUE"}
	args := make([]any, 0, 2)

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		args = append(args, "%"+city+"%")
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", len(args)))
	}

	query := `SELECT ` + tourColumns + ` FROM remote_tourism WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY created_date DESC`
	return query, args
}

func scanTour(row pgx.Row) (*domain.Tour, error) {
	var t domain.Tour
	if err := row.Scan(&t.ID, &t.GuideID, &t.City, &t.Title, &t.Description, &t.PricePerHour, &t.DurationHours, &t.AvailableFrom, &t.AvailableTo, &t.IsActive, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

var _ TourRepository = (*PGTourRepository)(nil)
