package services

import (
	"context"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// AnnouncementService implements announcement management.
type AnnouncementService struct {
	repo     ports.AnnouncementRepository
	authzSvc ports.AuthorizationService
}

var _ ports.AnnouncementService = (*AnnouncementService)(nil)

// NewAnnouncementService creates a new announcement service.
func NewAnnouncementService(repo ports.AnnouncementRepository, authzSvc ports.AuthorizationService) ports.AnnouncementService {
	return &AnnouncementService{
		repo:     repo,
		authzSvc: authzSvc,
	}
}

func (s *AnnouncementService) require(ctx context.Context, actorID int64, permission string) error {
	ok, err := s.authzSvc.Can(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrForbidden
	}
	return nil
}

// Create publishes a new announcement for the given week.
func (s *AnnouncementService) Create(ctx context.Context, actorID int64, params domain.AnnouncementParams) (*domain.Announcement, error) {
	if err := s.require(ctx, actorID, domain.PermAnnouncementsWrite); err != nil {
		return nil, err
	}

	announcement, err := domain.NewAnnouncement(params, actorID)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, announcement)
}

// Get returns a single announcement.
func (s *AnnouncementService) Get(ctx context.Context, id int64) (*domain.Announcement, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of announcements, newest first, with the total count.
func (s *AnnouncementService) List(ctx context.Context, params ports.ListAnnouncementsParams) ([]*domain.Announcement, int64, error) {
	return s.repo.List(ctx, params)
}

// Update applies a partial update.
func (s *AnnouncementService) Update(ctx context.Context, actorID, id int64, update domain.AnnouncementUpdate) (*domain.Announcement, error) {
	if err := s.require(ctx, actorID, domain.PermAnnouncementsWrite); err != nil {
		return nil, err
	}

	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := announcement.Apply(update); err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, announcement)
}

// Delete removes an announcement and, by cascade, its comments.
func (s *AnnouncementService) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.require(ctx, actorID, domain.PermAnnouncementsDelete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
