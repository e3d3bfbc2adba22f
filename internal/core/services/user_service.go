package services

import (
	"context"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// MaxUserPageSize caps the page size of the account list.
const MaxUserPageSize = 100

// UserService implements account management for administrators and
// editors.
type UserService struct {
	users    ports.UserRepository
	authzSvc ports.AuthorizationService
}

var _ ports.UserService = (*UserService)(nil)

func NewUserService(users ports.UserRepository, authzSvc ports.AuthorizationService) ports.UserService {
	return &UserService{users: users, authzSvc: authzSvc}
}

func (s *UserService) require(ctx context.Context, actorID int64, permission string) error {
	allowed, err := s.authzSvc.Can(ctx, actorID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden
	}
	return nil
}

// ListUsers returns a page of accounts ordered by id.
func (s *UserService) ListUsers(ctx context.Context, actorID int64, params ports.ListUsersParams) ([]*domain.User, int64, error) {
	if err := s.require(ctx, actorID, domain.PermUsersRead); err != nil {
		return nil, 0, err
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	params.Limit = min(params.Limit, MaxUserPageSize)
	params.Offset = max(params.Offset, 0)
	return s.users.List(ctx, params)
}

func (s *UserService) GetUser(ctx context.Context, actorID, userID int64) (*domain.User, error) {
	if err := s.require(ctx, actorID, domain.PermUsersRead); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// UpdateUser applies a partial update. Changing a role needs
// users:assign-role, and nobody may change their own role.
func (s *UserService) UpdateUser(ctx context.Context, actorID, userID int64, update domain.UserUpdate) (*domain.User, error) {
	if err := s.require(ctx, actorID, domain.PermUsersUpdate); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.ChangesRole(user.Role) {
		if userID == actorID {
			return nil, apperrors.ErrForbidden
		}
		if err := s.require(ctx, actorID, domain.PermUsersAssignRole); err != nil {
			return nil, err
		}
	}

	if err := user.Apply(update); err != nil {
		return nil, err
	}
	return s.users.Update(ctx, user)
}

// DeleteUser removes an account. Deleting yourself is forbidden.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if err := s.require(ctx, actorID, domain.PermUsersDelete); err != nil {
		return err
	}
	if userID == actorID {
		return apperrors.ErrForbidden
	}
	return s.users.Delete(ctx, userID)
}
