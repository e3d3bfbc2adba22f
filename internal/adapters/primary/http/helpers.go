package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/avisos-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/avisos-backend/internal/adapters/primary/validation"
	"github.com/lorrc/avisos-backend/internal/auth"
)

// getClaims extracts the user claims set by the JWT middleware.
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// parseIDParam extracts a positive integer URL parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		v := validation.NewValidator()
		v.Custom(name, false, "Invalid "+name)
		return 0, v.Errors()
	}
	return id, nil
}
