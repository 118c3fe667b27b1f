package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *MockReviewRepository) ListByReviewed(ctx context.Context, reviewedID int64, limit int) ([]domain.Review, error) {
	args := m.Called(ctx, reviewedID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *MockReviewRepository) RatingsOf(ctx context.Context, reviewedID int64) ([]int, error) {
	args := m.Called(ctx, reviewedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockReviewRepository) LockReviewed(ctx context.Context, reviewedID int64) error {
	return m.Called(ctx, reviewedID).Error(0)
}

func (m *MockReviewRepository) UpdateUserRating(ctx context.Context, userID int64, rating float64, count int) error {
	return m.Called(ctx, userID, rating, count).Error(0)
}

type MockTourRepository struct {
	mock.Mock
}

func (m *MockTourRepository) List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Tour), args.Error(1)
}

func (m *MockTourRepository) GetByID(ctx context.Context, id int64) (*domain.Tour, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tour), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type stubTransactor struct{}

func (stubTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	reviews *MockReviewRepository
	tours   *MockTourRepository
	users   *MockUserRepository
	svc     *ReviewService
}

func newFixture() fixture {
	f := fixture{
		reviews: &MockReviewRepository{},
		tours:   &MockTourRepository{},
		users:   &MockUserRepository{},
	}
	f.svc = NewReviewService(f.reviews, f.tours, f.users, stubTransactor{}, nil)
	return f
}

func tour() *domain.Tour {
	return &domain.Tour{ID: 10, GuideID: 2, Title: "Old Town walk", IsActive: true}
}

func TestAverageRating(t *testing.T) {
	tests := []struct {
		ratings   []int
		wantAvg   float64
		wantCount int
	}{
		{nil, 0, 0},
		{[]int{5}, 5, 1},
		{[]int{1, 2}, 1.5, 2},
		{[]int{5, 4, 4}, 4.33, 3},
		{[]int{5, 5, 4}, 4.67, 3},
	}

	for _, tt := range tests {
		avg, count := AverageRating(tt.ratings)
		assert.InDelta(t, tt.wantAvg, avg, 1e-9, "%v", tt.ratings)
		assert.Equal(t, tt.wantCount, count)
	}
}

func TestCreateTourReview(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.tours.On("GetByID", ctx, int64(10)).Return(tour(), nil).Once()
	f.reviews.On("LockReviewed", ctx, int64(2)).Return(nil).Once()
	f.reviews.On("Create", ctx, mock.MatchedBy(func(r *domain.Review) bool {
		return r.ReviewerID == 5 && r.ReviewedID == 2 && r.TourID != nil && *r.TourID == 10 &&
			r.Rating == 4 && r.Comment == "great guide"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Review).ID = 77
	}).Return(nil).Once()
	f.reviews.On("RatingsOf", ctx, int64(2)).Return([]int{5, 4, 4}, nil).Once()
	f.reviews.On("UpdateUserRating", ctx, int64(2), 4.33, 3).Return(nil).Once()

	review, err := f.svc.CreateTourReview(ctx, CreateTourReviewInput{ActorID: 5, TourID: 10, Rating: 4, Comment: " great guide "})
	require.NoError(t, err)
	assert.Equal(t, int64(77), review.ID)
	f.reviews.AssertExpectations(t)
}

func TestCreateTourReview_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateTourReviewInput
		tour    *domain.Tour
		tourErr error
		wantErr error
	}{
		{"rating too low", CreateTourReviewInput{ActorID: 5, TourID: 10, Rating: 0}, nil, nil, domain.ErrInvalidRating},
		{"rating too high", CreateTourReviewInput{ActorID: 5, TourID: 10, Rating: 6}, nil, nil, domain.ErrInvalidRating},
		{"comment too long", CreateTourReviewInput{ActorID: 5, TourID: 10, Rating: 5, Comment: strings.Repeat("a", domain.MaxReviewComment+1)}, nil, nil, domain.ErrInvalidInput},
		{"missing tour", CreateTourReviewInput{ActorID: 5, TourID: 10, Rating: 5}, nil, fmt.Errorf("tour 10: %w", domain.ErrNotFound), domain.ErrNotFound},
		{"own tour", CreateTourReviewInput{ActorID: 2, TourID: 10, Rating: 5}, tour(), nil, domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.tour != nil || tt.tourErr != nil {
				f.tours.On("GetByID", mock.Anything, int64(10)).Return(tt.tour, tt.tourErr).Once()
			}

			_, err := f.svc.CreateTourReview(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			f.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateTourReview_RecalculationFailureFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	boom := errors.New("update failed")

	f.tours.On("GetByID", ctx, int64(10)).Return(tour(), nil).Once()
	f.reviews.On("LockReviewed", ctx, int64(2)).Return(nil).Once()
	f.reviews.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.reviews.On("RatingsOf", ctx, int64(2)).Return([]int{3}, nil).Once()
	f.reviews.On("UpdateUserRating", ctx, int64(2), 3.0, 1).Return(boom).Once()

	_, err := f.svc.CreateTourReview(ctx, CreateTourReviewInput{ActorID: 5, TourID: 10, Rating: 3})
	assert.ErrorIs(t, err, boom)
}

func TestGuideReviews(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	list := []domain.Review{{ID: 1, ReviewedID: 2, Rating: 5}}

	f.users.On("GetByID", ctx, int64(2)).Return(&domain.User{ID: 2, Username: "guide", Rating: 4.5, ReviewCount: 2}, nil).Once()
	f.reviews.On("ListByReviewed", ctx, int64(2), guideReviewsLimit).Return(list, nil).Once()

	got, err := f.svc.GuideReviews(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Guide.Rating)
	assert.Equal(t, list, got.Reviews)

	f.users.On("GetByID", ctx, int64(3)).Return(nil, domain.ErrNotFound).Once()
	_, err = f.svc.GuideReviews(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
