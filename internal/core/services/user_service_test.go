package services_test

import (
	"context"
	"testing"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/mocks"
	"github.com/lorrc/avisos-backend/internal/core/ports"
	"github.com/lorrc/avisos-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newUserService() (ports.UserService, *mocks.MockUserRepository, *mocks.MockAuthorizationService) {
	repo := mocks.NewMockUserRepository()
	authz := mocks.NewMockAuthorizationService()
	return services.NewUserService(repo, authz), repo, authz
}

func storedUser(id int64, role domain.Role) *domain.User {
	return &domain.User{ID: id, Name: "Luis", Email: "luis@example.com", HashedPassword: "old-hash", Role: role}
}

func TestUserService_ListUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps the page", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(1), domain.PermUsersRead).Return(true, nil)
		repo.On("List", ctx, ports.ListUsersParams{Limit: services.MaxUserPageSize, Offset: 0}).
			Return([]*domain.User{storedUser(2, domain.RoleViewer)}, int64(1), nil)

		users, total, err := svc.ListUsers(ctx, 1, ports.ListUsersParams{Limit: 500, Offset: -3})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Equal(t, int64(1), total)
		repo.AssertExpectations(t)
	})

	t.Run("requires users:read", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(9), domain.PermUsersRead).Return(false, nil)

		_, _, err := svc.ListUsers(ctx, 9, ports.ListUsersParams{})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestUserService_GetUser(t *testing.T) {
	ctx := context.Background()
	svc, repo, authz := newUserService()
	authz.On("Can", ctx, int64(7), domain.PermUsersRead).Return(true, nil)
	repo.On("GetByID", ctx, int64(2)).Return(storedUser(2, domain.RoleEditor), nil)
	repo.On("GetByID", ctx, int64(3)).Return(nil, apperrors.ErrUserNotFound)

	user, err := svc.GetUser(ctx, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, user.Role)

	_, err = svc.GetUser(ctx, 7, 3)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("editor changes name and password", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(5), domain.PermUsersUpdate).Return(true, nil)
		repo.On("GetByID", ctx, int64(2)).Return(storedUser(2, domain.RoleViewer), nil)
		repo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == 2 && u.Name == "Luisa" && u.Role == domain.RoleViewer &&
				u.HashedPassword != "old-hash" && u.CheckPassword("NewPass123")
		})).Return(storedUser(2, domain.RoleViewer), nil)

		_, err := svc.UpdateUser(ctx, 5, 2, domain.UserUpdate{Name: ptr(" Luisa "), Password: ptr("NewPass123")})
		require.NoError(t, err)
		repo.AssertExpectations(t)
		authz.AssertNotCalled(t, "Can", ctx, int64(5), domain.PermUsersAssignRole)
	})

	t.Run("role change needs users:assign-role", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(5), domain.PermUsersUpdate).Return(true, nil)
		authz.On("Can", ctx, int64(5), domain.PermUsersAssignRole).Return(false, nil)
		repo.On("GetByID", ctx, int64(2)).Return(storedUser(2, domain.RoleViewer), nil)

		_, err := svc.UpdateUser(ctx, 5, 2, domain.UserUpdate{Role: ptr("admin")})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("admin assigns a role", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(1), domain.PermUsersUpdate).Return(true, nil)
		authz.On("Can", ctx, int64(1), domain.PermUsersAssignRole).Return(true, nil)
		repo.On("GetByID", ctx, int64(2)).Return(storedUser(2, domain.RoleViewer), nil)
		repo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RoleEditor
		})).Return(storedUser(2, domain.RoleEditor), nil)

		user, err := svc.UpdateUser(ctx, 1, 2, domain.UserUpdate{Role: ptr("editor")})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleEditor, user.Role)
	})

	t.Run("unchanged role is not a role change", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(5), domain.PermUsersUpdate).Return(true, nil)
		repo.On("GetByID", ctx, int64(5)).Return(storedUser(5, domain.RoleEditor), nil)
		repo.On("Update", ctx, mock.Anything).Return(storedUser(5, domain.RoleEditor), nil)

		_, err := svc.UpdateUser(ctx, 5, 5, domain.UserUpdate{Role: ptr("editor")})
		require.NoError(t, err)
	})

	t.Run("own role is locked", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(1), domain.PermUsersUpdate).Return(true, nil)
		repo.On("GetByID", ctx, int64(1)).Return(storedUser(1, domain.RoleAdmin), nil)

		_, err := svc.UpdateUser(ctx, 1, 1, domain.UserUpdate{Role: ptr("viewer")})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("invalid fields", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(1), domain.PermUsersUpdate).Return(true, nil)
		repo.On("GetByID", ctx, int64(2)).Return(storedUser(2, domain.RoleViewer), nil)

		_, err := svc.UpdateUser(ctx, 1, 2, domain.UserUpdate{Email: ptr("nope"), Password: ptr("short")})
		var fieldErrs *apperrors.ValidationErrors
		require.ErrorAs(t, err, &fieldErrs)
		assert.Contains(t, fieldErrs.Errors, "email")
		assert.Contains(t, fieldErrs.Errors, "password")
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes another account", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(1), domain.PermUsersDelete).Return(true, nil)
		repo.On("Delete", ctx, int64(2)).Return(nil)

		require.NoError(t, svc.DeleteUser(ctx, 1, 2))
		repo.AssertExpectations(t)
	})

	t.Run("self delete is forbidden", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(1), domain.PermUsersDelete).Return(true, nil)

		assert.ErrorIs(t, svc.DeleteUser(ctx, 1, 1), apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("editor is forbidden", func(t *testing.T) {
		svc, _, authz := newUserService()
		authz.On("Can", ctx, int64(5), domain.PermUsersDelete).Return(false, nil)

		assert.ErrorIs(t, svc.DeleteUser(ctx, 5, 2), apperrors.ErrForbidden)
	})

	t.Run("owner of content", func(t *testing.T) {
		svc, repo, authz := newUserService()
		authz.On("Can", ctx, int64(1), domain.PermUsersDelete).Return(true, nil)
		repo.On("Delete", ctx, int64(3)).Return(apperrors.ErrUserInUse)

		assert.ErrorIs(t, svc.DeleteUser(ctx, 1, 3), apperrors.ErrUserInUse)
	})
}
