package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// AuthService owns account creation and password login.
type AuthService struct {
	users ports.UserRepository
	authz ports.AuthorizationService
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(users ports.UserRepository, authz ports.AuthorizationService) ports.AuthService {
	return &AuthService{users: users, authz: authz}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account on behalf of actorID, who needs
// users:create.
func (s *AuthService) Register(ctx context.Context, actorID int64, params domain.UserRegistrationParams) (*domain.User, error) {
	allowed, err := s.authz.Can(ctx, actorID, domain.PermUsersCreate)
	switch {
	case err != nil:
		return nil, err
	case !allowed:
		return nil, apperrors.ErrForbidden
	}
	return s.create(ctx, params)
}

// EnsureAdmin creates the bootstrap administrator unless an account with
// its email already exists. created reports which case happened.
func (s *AuthService) EnsureAdmin(ctx context.Context, params domain.UserRegistrationParams) (user *domain.User, created bool, err error) {
	user, err = s.users.GetByEmail(ctx, normalizeEmail(params.Email))
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, false, fmt.Errorf("looking up bootstrap admin: %w", err)
	}

	params.Role = string(domain.RoleAdmin)
	if user, err = s.create(ctx, params); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *AuthService) create(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error) {
	user, err := domain.NewUser(params)
	if err != nil {
		return nil, err
	}

	switch _, err := s.users.GetByEmail(ctx, user.Email); {
	case err == nil:
		return nil, apperrors.ErrUserExists
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return nil, err
	}
	return s.users.Create(ctx, user)
}

// Login checks email and password. An unknown email and a wrong password
// both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	switch {
	case email == "":
		return nil, apperrors.ErrEmailRequired
	case password == "":
		return nil, apperrors.ErrPasswordRequired
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}
