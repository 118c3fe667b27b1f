package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByReviewed(ctx context.Context, reviewedID int64, limit int) ([]domain.Review, error)
	RatingsOf(ctx context.Context, reviewedID int64) ([]int, error)
	LockReviewed(ctx context.Context, reviewedID int64) error
	UpdateUserRating(ctx context.Context, userID int64, rating float64, count int) error
}

type PGReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) ReviewRepository {
	return &PGReviewRepository{db: db}
}

func (r *PGReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO reviews (reviewer_id, reviewed_id, tourism_id, rating, comment)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, created_date`,
		review.ReviewerID, review.ReviewedID, review.TourID, review.Rating, review.Comment).
		Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *PGReviewRepository) ListByReviewed(ctx context.Context, reviewedID int64, limit int) ([]domain.Review, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, reviewer_id, reviewed_id, tourism_id, rating, COALESCE(comment, ''), created_date
		FROM reviews WHERE reviewed_id=$1 ORDER BY created_date DESC LIMIT $2`, reviewedID, limit)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.ReviewerID, &rv.ReviewedID, &rv.TourID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *PGReviewRepository) RatingsOf(ctx context.Context, reviewedID int64) ([]int, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT rating FROM reviews WHERE reviewed_id=$1`, reviewedID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	ratings, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("scan ratings: %w", err)
	}
	return ratings, nil
}

// LockReviewed holds the reviewed user's row until the transaction ends, so concurrent reviews
// recalculate the rating one after another.
func (r *PGReviewRepository) LockReviewed(ctx context.Context, reviewedID int64) error {
	tx := GetTx(ctx)
	if tx == nil {
		return errors.New("lock reviewed user: no transaction in context")
	}
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, reviewedID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user %d: %w", reviewedID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock user %d: %w", reviewedID, err)
	}
	return nil
}

func (r *PGReviewRepository) UpdateUserRating(ctx context.Context, userID int64, rating float64, count int) error {
	cmd, err := conn(ctx, r.db).Exec(ctx, `UPDATE users SET rating=$1, review_count=$2 WHERE id=$3`, rating, count, userID)
	if err != nil {
		return fmt.Errorf("update user rating: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

var _ ReviewRepository = (*PGReviewRepository)(nil)
