package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/mocks"
	"github.com/lorrc/avisos-backend/internal/core/ports"
	"github.com/lorrc/avisos-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type commentServiceDeps struct {
	comments      *mocks.MockCommentRepository
	announcements *mocks.MockAnnouncementRepository
	authz         *mocks.MockAuthorizationService
	bus           *mocks.MockEventBus
}

func newCommentService() (ports.CommentService, commentServiceDeps) {
	deps := commentServiceDeps{
		comments:      mocks.NewMockCommentRepository(),
		announcements: mocks.NewMockAnnouncementRepository(),
		authz:         mocks.NewMockAuthorizationService(),
		bus:           mocks.NewMockEventBus(),
	}
	svc := services.NewCommentService(deps.comments, deps.announcements, deps.authz, deps.bus)
	return svc, deps
}

func enrichedComment(id, announcementID, authorID int64, body string) *domain.Comment {
	return &domain.Comment{
		ID:             id,
		AnnouncementID: announcementID,
		AuthorID:       authorID,
		Body:           body,
		CreatedAt:      time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		Author:         &domain.UserInfo{ID: authorID, Name: "Ana", Email: "ana@example.com"},
		Announcement:   &domain.AnnouncementRef{ID: announcementID, Title: "Cleaning day", CreatedBy: 1},
	}
}

func TestCommentService_CreateComment(t *testing.T) {
	ctx := context.Background()
	params := ports.CreateCommentParams{AnnouncementID: 42, ActorID: 7, Body: "hello"}

	t.Run("persists then publishes the id", func(t *testing.T) {
		svc, deps := newCommentService()

		deps.authz.On("Can", ctx, int64(7), domain.PermCommentsCreate).Return(true, nil)
		deps.announcements.On("GetByID", ctx, int64(42)).Return(&domain.Announcement{ID: 42}, nil)
		deps.comments.On("Create", ctx, mock.AnythingOfType("*domain.Comment")).
			Return(enrichedComment(100, 42, 7, "hello"), nil)
		deps.bus.On("Publish", ctx, domain.TopicCommentCreated, int64(100)).Return()

		comment, err := svc.CreateComment(ctx, params)

		require.NoError(t, err)
		assert.Equal(t, int64(100), comment.ID)
		deps.bus.AssertExpectations(t)
	})

	t.Run("forbidden", func(t *testing.T) {
		svc, deps := newCommentService()
		deps.authz.On("Can", ctx, int64(7), domain.PermCommentsCreate).Return(false, nil)

		_, err := svc.CreateComment(ctx, params)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		deps.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown announcement", func(t *testing.T) {
		svc, deps := newCommentService()
		deps.authz.On("Can", ctx, int64(7), domain.PermCommentsCreate).Return(true, nil)
		deps.announcements.On("GetByID", ctx, int64(42)).Return(nil, apperrors.ErrAnnouncementNotFound)

		_, err := svc.CreateComment(ctx, params)

		assert.ErrorIs(t, err, apperrors.ErrAnnouncementNotFound)
		deps.comments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("failed write publishes nothing", func(t *testing.T) {
		svc, deps := newCommentService()
		deps.authz.On("Can", ctx, int64(7), domain.PermCommentsCreate).Return(true, nil)
		deps.announcements.On("GetByID", ctx, int64(42)).Return(&domain.Announcement{ID: 42}, nil)
		deps.comments.On("Create", ctx, mock.Anything).Return(nil, errors.New("insert failed"))

		_, err := svc.CreateComment(ctx, params)

		assert.Error(t, err)
		deps.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blank body", func(t *testing.T) {
		svc, deps := newCommentService()
		deps.authz.On("Can", ctx, int64(7), domain.PermCommentsCreate).Return(true, nil)

		_, err := svc.CreateComment(ctx, ports.CreateCommentParams{AnnouncementID: 42, ActorID: 7, Body: "  "})

		assert.ErrorIs(t, err, apperrors.ErrCommentBodyRequired)
	})
}

func TestCommentService_ListComments_ClampsPaging(t *testing.T) {
	ctx := context.Background()
	svc, deps := newCommentService()

	deps.comments.On("List", ctx, mock.MatchedBy(func(p ports.ListCommentsParams) bool {
		return p.Limit == services.MaxCommentPageSize && p.Offset == 0
	})).Return([]*domain.Comment{}, int64(0), nil)

	_, _, err := svc.ListComments(ctx, ports.ListCommentsParams{Limit: 500, Offset: -3})
	require.NoError(t, err)
	deps.comments.AssertExpectations(t)
}

func TestCommentService_DeleteComment(t *testing.T) {
	ctx := context.Background()

	t.Run("author deletes own comment", func(t *testing.T) {
		svc, deps := newCommentService()
		deps.comments.On("GetWithContext", ctx, int64(5)).Return(enrichedComment(5, 1, 7, "x"), nil)
		deps.comments.On("Delete", ctx, int64(5)).Return(nil)

		require.NoError(t, svc.DeleteComment(ctx, 7, 5))
		deps.authz.AssertNotCalled(t, "Can", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin deletes any comment", func(t *testing.T) {
		svc, deps := newCommentService()
		deps.comments.On("GetWithContext", ctx, int64(5)).Return(enrichedComment(5, 1, 7, "x"), nil)
		deps.authz.On("Can", ctx, int64(1), domain.PermCommentsDeleteAny).Return(true, nil)
		deps.comments.On("Delete", ctx, int64(5)).Return(nil)

		require.NoError(t, svc.DeleteComment(ctx, 1, 5))
	})

	t.Run("others are forbidden", func(t *testing.T) {
		svc, deps := newCommentService()
		deps.comments.On("GetWithContext", ctx, int64(5)).Return(enrichedComment(5, 1, 7, "x"), nil)
		deps.authz.On("Can", ctx, int64(8), domain.PermCommentsDeleteAny).Return(false, nil)

		assert.ErrorIs(t, svc.DeleteComment(ctx, 8, 5), apperrors.ErrForbidden)
		deps.comments.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
