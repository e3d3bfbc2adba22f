package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/avisos-backend/internal/adapters/primary/validation"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

const (
	defaultUsersPerPage = 20
	maxUsersPerPage     = 100
)

var roleNames = []string{string(domain.RoleAdmin), string(domain.RoleEditor), string(domain.RoleViewer)}

// UserHandler manages existing accounts. Creation stays on /auth/register.
type UserHandler struct {
	userService  ports.UserService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewUserHandler(userService ports.UserService, errorHandler *ErrorHandler, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "user"),
	}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", h.HandleGetUser)
		r.Put("/", h.HandleUpdateUser)
		r.Delete("/", h.HandleDeleteUser)
	})
}

// UpdateUserRequest is a partial update; omitted fields are kept.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

func (r *UpdateUserRequest) Validate() (domain.UserUpdate, error) {
	v := validation.NewValidator()
	if r.Name != nil {
		v.Required("name", *r.Name)
	}
	if r.Email != nil {
		v.Required("email", *r.Email).Email("email", strings.TrimSpace(*r.Email))
	}
	if r.Password != nil {
		v.Required("password", *r.Password)
	}
	if r.Role != nil {
		v.Required("role", *r.Role).OneOf("role", *r.Role, roleNames)
	}
	if err := v.Err(); err != nil {
		return domain.UserUpdate{}, err
	}
	return domain.UserUpdate{Name: r.Name, Email: r.Email, Password: r.Password, Role: r.Role}, nil
}

// HandleListUsers handles GET /users.
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	v := validation.NewValidator()
	params := ports.ListUsersParams{}
	if role := validation.ParseStringQueryParam(r, "role"); role != nil {
		v.OneOf("role", *role, roleNames)
		parsed := domain.Role(*role)
		params.Role = &parsed
	}
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	page := validation.ParsePagination(r, "limit", defaultUsersPerPage, maxUsersPerPage)
	params.Limit, params.Offset = page.Limit, page.Offset

	users, total, err := h.userService.ListUsers(r.Context(), claims.UserID, params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	data := make([]UserDTO, 0, len(users))
	for _, u := range users {
		data = append(data, toUserDTO(u))
	}
	WritePaginated(w, data, page.Limit, page.Offset, total)
}

// HandleGetUser handles GET /users/{userID}.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	userID, err := parseIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.userService.GetUser(r.Context(), claims.UserID, userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleUpdateUser handles PUT /users/{userID}.
func (h *UserHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	userID, err := parseIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeJSON[UpdateUserRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	update, err := req.Validate()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), claims.UserID, userID, update)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user updated",
		"target_user_id", userID,
		"password_changed", update.Password != nil,
	)
	WriteJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleDeleteUser handles DELETE /users/{userID}.
func (h *UserHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	userID, err := parseIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.userService.DeleteUser(r.Context(), claims.UserID, userID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user deleted", "target_user_id", userID)
	WriteNoContent(w)
}
