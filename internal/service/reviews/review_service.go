package reviews

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/VK7Cuber/Room2room-Tour/internal/metrics"
	"github.com/VK7Cuber/Room2room-Tour/internal/repository"
	"go.uber.org/zap"
)

const guideReviewsLimit = 50

type ReviewUseCase interface {
	CreateTourReview(ctx context.Context, input CreateTourReviewInput) (*domain.Review, error)
	GuideReviews(ctx context.Context, guideID int64) (*GuideReviews, error)
}

type CreateTourReviewInput struct {
	ActorID int64
	TourID  int64
	Rating  int
	Comment string
}

// GuideReviews is a guide's aggregate rating with the latest reviews.
type GuideReviews struct {
	Guide   domain.User     `json:"guide"`
	Reviews []domain.Review `json:"reviews"`
}

type ReviewService struct {
	reviews repository.ReviewRepository
	tours   repository.TourRepository
	users   repository.UserRepository
	tx      repository.Transactor
	logger  *zap.Logger
}

func NewReviewService(
	reviews repository.ReviewRepository,
	tours repository.TourRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		reviews: reviews,
		tours:   tours,
		users:   users,
		tx:      tx,
		logger:  logger,
	}
}

// CreateTourReview rates the guide of a tour and recalculates the guide's average rating in
// the same transaction.
func (s *ReviewService) CreateTourReview(ctx context.Context, input CreateTourReviewInput) (*domain.Review, error) {
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return nil, domain.ErrInvalidRating
	}
	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > domain.MaxReviewComment {
		return nil, fmt.Errorf("comment longer than %d characters: %w", domain.MaxReviewComment, domain.ErrInvalidInput)
	}

	tour, err := s.tours.GetByID(ctx, input.TourID)
	if err != nil {
		return nil, err
	}
	if tour.GuideID == input.ActorID {
		return nil, fmt.Errorf("guide cannot review own tour: %w", domain.ErrForbidden)
	}

	tourID := tour.ID
	review := &domain.Review{
		ReviewerID: input.ActorID,
		ReviewedID: tour.GuideID,
		TourID:     &tourID,
		Rating:     input.Rating,
		Comment:    comment,
	}

	var rating float64
	var count int
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.reviews.LockReviewed(ctx, tour.GuideID); err != nil {
			return err
		}
		if err := s.reviews.Create(ctx, review); err != nil {
			return err
		}
		ratings, err := s.reviews.RatingsOf(ctx, tour.GuideID)
		if err != nil {
			return err
		}
		rating, count = AverageRating(ratings)
		return s.reviews.UpdateUserRating(ctx, tour.GuideID, rating, count)
	})
	if err != nil {
		return nil, err
	}

	metrics.ReviewsCreated.Inc()
	s.logger.Info("tour review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("tour_id", tour.ID),
		zap.Int64("guide_id", tour.GuideID),
		zap.Float64("rating", rating),
		zap.Int("review_count", count))
	return review, nil
}

func (s *ReviewService) GuideReviews(ctx context.Context, guideID int64) (*GuideReviews, error) {
	guide, err := s.users.GetByID(ctx, guideID)
	if err != nil {
		return nil, err
	}
	list, err := s.reviews.ListByReviewed(ctx, guideID, guideReviewsLimit)
	if err != nil {
		return nil, err
	}
	return &GuideReviews{Guide: *guide, Reviews: list}, nil
}

// AverageRating returns the mean rounded to two decimals and the number of ratings.
// No ratings give 0, 0.
func AverageRating(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return math.Round(avg*100) / 100, len(ratings)
}

var _ ReviewUseCase = (*ReviewService)(nil)
