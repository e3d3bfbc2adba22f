package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/avisos-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/avisos-backend/internal/auth"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/mocks"
)

var (
	adminUser  = &domain.User{ID: 1, Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin}
	viewerUser = &domain.User{ID: 7, Name: "Vera Viewer", Email: "vera@example.com", Role: domain.RoleViewer}
)

type testEnv struct {
	router          http.Handler
	tm              *auth.TokenManager
	authSvc         *mocks.MockAuthService
	authzSvc        *mocks.MockAuthorizationService
	announcementSvc *mocks.MockAnnouncementService
	commentSvc      *mocks.MockCommentService
	metricsSvc      *mocks.MockMetricsService
	userSvc         *mocks.MockUserService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := discardLogger()
	errorHandler := NewErrorHandler(logger)

	env := &testEnv{
		tm:              auth.NewTokenManager("test-secret", time.Hour),
		authSvc:         mocks.NewMockAuthService(),
		authzSvc:        mocks.NewMockAuthorizationService(),
		announcementSvc: mocks.NewMockAnnouncementService(),
		commentSvc:      mocks.NewMockCommentService(),
		metricsSvc:      mocks.NewMockMetricsService(),
		userSvc:         mocks.NewMockUserService(),
	}

	authHandler := NewAuthHandler(env.authSvc, env.tm, errorHandler, logger)
	meHandler := NewMeHandler(env.authzSvc, errorHandler, logger)
	announcementHandler := NewAnnouncementHandler(env.announcementSvc, errorHandler, logger)
	commentHandler := NewCommentHandler(env.commentSvc, errorHandler, logger, nil)
	metricsHandler := NewMetricsHandler(env.metricsSvc, errorHandler, logger)
	userHandler := NewUserHandler(env.userSvc, errorHandler, logger)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", authHandler.RegisterRoutes)
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(env.tm))
			r.Route("/me", meHandler.RegisterRoutes)
			r.Route("/announcements", announcementHandler.RegisterRoutes)
			r.Route("/comments", commentHandler.RegisterRoutes)
			r.Route("/metrics", metricsHandler.RegisterRoutes)
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})
	env.router = r

	t.Cleanup(func() {
		env.authSvc.AssertExpectations(t)
		env.authzSvc.AssertExpectations(t)
		env.announcementSvc.AssertExpectations(t)
		env.commentSvc.AssertExpectations(t)
		env.metricsSvc.AssertExpectations(t)
		env.userSvc.AssertExpectations(t)
	})
	return env
}

// do sends a request as user; a nil user sends no Authorization header.
func (e *testEnv) do(t *testing.T, method, path, body string, user *domain.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		token, err := e.tm.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
