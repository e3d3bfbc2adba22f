package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/lorrc/avisos-backend/internal/auth"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/infrastructure/logging"
)

type claimsKey struct{}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// JWTMiddleware rejects requests without a valid access token. Accepted
// claims are stored in the context and the user ID is attached to logs.
func JWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header is required", "UNAUTHORIZED")
				return
			}
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authorization header format must be Bearer {token}", "UNAUTHORIZED")
				return
			}
			claims, err := tm.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token", "UNAUTHORIZED")
				return
			}

			ctx := logging.WithUserID(context.WithValue(r.Context(), claimsKey{}, claims), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the claims stored by JWTMiddleware.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// RequireRole admits only tokens whose role is listed. It must run after
// JWTMiddleware.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			switch {
			case !ok:
				writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
			case !slices.Contains(roles, claims.Role):
				writeError(w, http.StatusForbidden, "You do not have permission to perform this action", "FORBIDDEN")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
