package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/avisos-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/avisos-backend/internal/adapters/primary/validation"
	"github.com/lorrc/avisos-backend/internal/auth"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// AuthHandler handles login and account registration.
type AuthHandler struct {
	authService  ports.AuthService
	tokenManager *auth.TokenManager
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService ports.AuthService,
	tokenManager *auth.TokenManager,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "auth"),
	}
}

// RegisterRoutes registers the /auth routes. Registration is limited to
// administrators; the service also checks the users:create permission.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.With(mw.JWTMiddleware(h.tokenManager), mw.RequireRole(domain.RoleAdmin)).
		Post("/register", h.HandleRegister)
}

// --- Request/Response DTOs ---

// LoginRequest defines the expected JSON body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login request
func (r *LoginRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("email", r.Email).
		Email("email", strings.TrimSpace(r.Email)).
		Required("password", r.Password)
	return v.Err()
}

// RegisterRequest defines the expected JSON body for creating a user.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate checks the request shape; password strength is left to the domain.
func (r *RegisterRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("name", r.Name).
		Required("email", r.Email).
		Email("email", strings.TrimSpace(r.Email)).
		Required("password", r.Password).
		OneOf("role", r.Role, roleNames)
	return v.Err()
}

// UserDTO is the public representation of an account.
type UserDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

func toUserDTO(user *domain.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}
}

// --- Handlers ---

// HandleLogin handles POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeJSON[LoginRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	token, err := h.tokenManager.GenerateToken(user)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user logged in", "user_id", user.ID)

	WriteJSON(w, http.StatusOK, TokenResponse{Token: token, User: toUserDTO(user)})
}

// HandleRegister handles POST /auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeJSON[RegisterRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), claims.UserID, domain.UserRegistrationParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user registered",
		"new_user_id", user.ID,
		"role", user.Role,
	)

	WriteCreated(w, toUserDTO(user))
}
