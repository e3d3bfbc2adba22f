package services

import (
	"context"
	"time"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// MetricsService computes and serves weekly participation metrics.
type MetricsService struct {
	repo     ports.MetricsRepository
	authzSvc ports.AuthorizationService
	txm      ports.TransactionManager
}

var _ ports.MetricsService = (*MetricsService)(nil)

// NewMetricsService creates a new metrics service.
func NewMetricsService(repo ports.MetricsRepository, authzSvc ports.AuthorizationService, txm ports.TransactionManager) ports.MetricsService {
	return &MetricsService{
		repo:     repo,
		authzSvc: authzSvc,
		txm:      txm,
	}
}

// ListWeekly returns stored weekly metrics, newest week first.
func (s *MetricsService) ListWeekly(ctx context.Context, params ports.ListWeeklyMetricsParams) ([]*domain.WeeklyMetric, int64, error) {
	if params.Limit <= 0 {
		params.Limit = 10
	}
	return s.repo.List(ctx, params)
}

// RecalculateWeek recomputes the Monday to Sunday week containing day and
// stores the result.
func (s *MetricsService) RecalculateWeek(ctx context.Context, actorID int64, day time.Time) (*domain.WeeklyMetric, error) {
	canRecalculate, err := s.authzSvc.Can(ctx, actorID, domain.PermMetricsRecalculate)
	if err != nil {
		return nil, err
	}
	if !canRecalculate {
		return nil, apperrors.ErrForbidden
	}
	if day.IsZero() {
		return nil, apperrors.ErrInvalidWeek
	}

	week := domain.WeekOf(day)

	var result *domain.WeeklyMetric
	err = s.txm.WithTransaction(ctx, func(ctx context.Context) error {
		computed, err := s.repo.ComputeWeek(ctx, week)
		if err != nil {
			return err
		}
		result, err = s.repo.Upsert(ctx, computed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
