package services

import (
	"context"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// MaxCommentPageSize caps the page size of the comment search.
const MaxCommentPageSize = 100

// CommentService implements the business logic for comments.
type CommentService struct {
	commentRepo      ports.CommentRepository
	announcementRepo ports.AnnouncementRepository
	authzSvc         ports.AuthorizationService
	bus              ports.EventBus
}

// Ensure implementation matches the interface.
var _ ports.CommentService = (*CommentService)(nil)

// NewCommentService creates a new service for comment logic.
func NewCommentService(
	commentRepo ports.CommentRepository,
	announcementRepo ports.AnnouncementRepository,
	authzSvc ports.AuthorizationService,
	bus ports.EventBus,
) ports.CommentService {
	return &CommentService{
		commentRepo:      commentRepo,
		announcementRepo: announcementRepo,
		authzSvc:         authzSvc,
		bus:              bus,
	}
}

// CreateComment persists a comment and announces it on the event bus. The
// event is published only after the insert succeeded.
func (s *CommentService) CreateComment(ctx context.Context, params ports.CreateCommentParams) (*domain.Comment, error) {
	canCreate, err := s.authzSvc.Can(ctx, params.ActorID, domain.PermCommentsCreate)
	if err != nil {
		return nil, err
	}
	if !canCreate {
		return nil, apperrors.ErrForbidden
	}

	comment, err := domain.NewComment(params.AnnouncementID, params.ActorID, params.Body)
	if err != nil {
		return nil, err
	}

	if _, err := s.announcementRepo.GetByID(ctx, params.AnnouncementID); err != nil {
		return nil, err
	}

	created, err := s.commentRepo.Create(ctx, comment)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, domain.TopicCommentCreated, created.ID)

	return created, nil
}

// ListForAnnouncement returns every comment of an announcement, newest first.
func (s *CommentService) ListForAnnouncement(ctx context.Context, announcementID int64) ([]*domain.Comment, error) {
	if announcementID <= 0 {
		return nil, apperrors.ErrAnnouncementIDRequired
	}
	return s.commentRepo.ListByAnnouncement(ctx, announcementID)
}

// ListComments searches comments across announcements.
func (s *CommentService) ListComments(ctx context.Context, params ports.ListCommentsParams) ([]*domain.Comment, int64, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Limit > MaxCommentPageSize {
		params.Limit = MaxCommentPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.commentRepo.List(ctx, params)
}

// DeleteComment removes a comment. Authors may delete their own comments;
// anyone else needs the delete-any permission.
func (s *CommentService) DeleteComment(ctx context.Context, actorID, commentID int64) error {
	comment, err := s.commentRepo.GetWithContext(ctx, commentID)
	if err != nil {
		return err
	}

	if comment.AuthorID != actorID {
		canDelete, err := s.authzSvc.Can(ctx, actorID, domain.PermCommentsDeleteAny)
		if err != nil {
			return err
		}
		if !canDelete {
			return apperrors.ErrForbidden
		}
	}

	return s.commentRepo.Delete(ctx, commentID)
}
