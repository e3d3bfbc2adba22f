package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

// MeHandler serves the caller's own identity and permissions.
type MeHandler struct {
	authz        ports.AuthorizationService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewMeHandler(authz ports.AuthorizationService, errorHandler *ErrorHandler, logger *slog.Logger) *MeHandler {
	return &MeHandler{authz: authz, errorHandler: errorHandler, logger: logger.With("handler", "me")}
}

func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleMe)
	r.Get("/permissions", h.HandlePermissions)
}

// HandleMe answers from the token claims without touching the database.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if claims, ok := getClaims(w, r); ok {
		WriteJSON(w, http.StatusOK, UserDTO{ID: claims.UserID, Name: claims.Name, Email: claims.Email, Role: string(claims.Role)})
	}
}

// HandlePermissions resolves the permissions of the stored role.
func (h *MeHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	perms, err := h.authz.GetPermissions(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: perms})
}
