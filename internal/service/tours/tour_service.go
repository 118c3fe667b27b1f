package tours

import (
	"context"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/VK7Cuber/Room2room-Tour/internal/repository"
	"go.uber.org/zap"
)

type TourUseCase interface {
	List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error)
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
}

type TourCache interface {
	GetTours(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error)
	SetTours(ctx context.Context, filter domain.TourFilter, tours []domain.Tour) error
	GetTour(ctx context.Context, id int64) (*domain.Tour, error)
	SetTour(ctx context.Context, tour *domain.Tour) error
}

// TourService serves catalog reads through a read-through cache. The cache is optional;
// cache errors fall back to the repository.
type TourService struct {
	repo   repository.TourRepository
	cache  TourCache
	logger *zap.Logger
}

func NewTourService(repo repository.TourRepository, cache TourCache, logger *zap.Logger) *TourService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TourService{repo: repo, cache: cache, logger: logger}
}

func (s *TourService) List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error) {
	if s.cache != nil {
		cached, err := s.cache.GetTours(ctx, filter)
		if err != nil {
			s.logger.Warn("read tours cache", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	tours, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetTours(ctx, filter, tours); err != nil {
			s.logger.Warn("write tours cache", zap.Error(err))
		}
	}
	return tours, nil
}

func (s *TourService) GetByID(ctx context.Context, id int64) (*domain.Tour, error) {
	if s.cache != nil {
		cached, err := s.cache.GetTour(ctx, id)
		if err != nil {
			s.logger.Warn("read tour cache", zap.Int64("tour_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	tour, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetTour(ctx, tour); err != nil {
			s.logger.Warn("write tour cache", zap.Int64("tour_id", id), zap.Error(err))
		}
	}
	return tour, nil
}

var _ TourUseCase = (*TourService)(nil)
