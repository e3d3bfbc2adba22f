package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// AuthorizationService answers permission questions from the role stored
// with the user, not the one in the token, so a demotion applies at once.
type AuthorizationService struct {
	users ports.UserRepository
}

var _ ports.AuthorizationService = (*AuthorizationService)(nil)

func NewAuthorizationService(users ports.UserRepository) ports.AuthorizationService {
	return &AuthorizationService{users: users}
}

func (s *AuthorizationService) role(ctx context.Context, userID int64) (domain.Role, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolving role of user %d: %w", userID, err)
	}
	return user.Role, nil
}

// Can denies whenever the user cannot be loaded.
func (s *AuthorizationService) Can(ctx context.Context, userID int64, permission string) (bool, error) {
	role, err := s.role(ctx, userID)
	if err != nil {
		return false, err
	}
	return role.Has(permission), nil
}

// GetPermissions returns the user's permissions sorted by name. An unknown
// role yields an empty, non-nil slice.
func (s *AuthorizationService) GetPermissions(ctx context.Context, userID int64) ([]string, error) {
	role, err := s.role(ctx, userID)
	if err != nil {
		return nil, err
	}
	perms := role.Permissions()
	if perms == nil {
		perms = []string{}
	}
	slices.Sort(perms)
	return perms, nil
}
