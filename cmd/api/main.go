package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/avisos-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/avisos-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/avisos-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/avisos-backend/internal/adapters/secondary/email"
	"github.com/lorrc/avisos-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/avisos-backend/internal/auth"
	"github.com/lorrc/avisos-backend/internal/config"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/services"
	"github.com/lorrc/avisos-backend/internal/infrastructure/eventbus"
	"github.com/lorrc/avisos-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Apply migrations and initialize the database pool
	version, err := postgres.RunMigrations(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database schema up to date", "version", version)

	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	bus := eventbus.New(logger)
	hub := websocket.NewHub(websocket.Config{
		SendBufferSize: cfg.WebSocket.SendBufferSize,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingInterval,
		WelcomeMessage: cfg.WebSocket.WelcomeMessage,
	}, logger)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, authRateLimiter, commentRateLimiter *mw.RateLimiter
	var commentLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})

		commentRateLimiter = mw.NewUserRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
		commentLimiter = commentRateLimiter.Middleware

		defer generalRateLimiter.Stop()
		defer authRateLimiter.Stop()
		defer commentRateLimiter.Stop()
	}

	// 6. Dependency Injection (Wiring the Hexagon)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	announcementRepo := postgres.NewAnnouncementRepository(pool)
	commentRepo := postgres.NewCommentRepository(pool)
	metricsRepo := postgres.NewMetricsRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Notifier (Secondary Adapter)
	notifier := email.NewMockSMTPNotifier(userRepo, logger)

	// Services (Core)
	authzService := services.NewAuthorizationService(userRepo)
	authService := services.NewAuthService(userRepo, authzService)
	userService := services.NewUserService(userRepo, authzService)
	announcementService := services.NewAnnouncementService(announcementRepo, authzService)
	commentService := services.NewCommentService(commentRepo, announcementRepo, authzService, bus)
	metricsService := services.NewMetricsService(metricsRepo, authzService, txManager)

	// comment:created subscribers
	broadcaster := services.NewCommentBroadcaster(commentRepo, hub, logger, cfg.Realtime.BroadcastTimeout)
	broadcaster.Subscribe(bus)
	commentNotifier := services.NewCommentNotifier(commentRepo, notifier, logger, cfg.Realtime.BroadcastTimeout)
	commentNotifier.Subscribe(bus)

	// Seed the initial administrator
	if cfg.Seed.Enabled {
		admin, created, err := authService.EnsureAdmin(ctx, domain.UserRegistrationParams{
			Name:     cfg.Seed.AdminName,
			Email:    cfg.Seed.AdminEmail,
			Password: cfg.Seed.AdminPassword,
		})
		if err != nil {
			logger.Error("failed to seed administrator", "error", err)
			os.Exit(1)
		}
		if created {
			logger.Info("administrator account created", "user_id", admin.ID, "email", admin.Email)
		}
	}

	// Handlers (Primary Adapters)
	authHandler := httpAdapter.NewAuthHandler(authService, tokenManager, errorHandler, logger)
	meHandler := httpAdapter.NewMeHandler(authzService, errorHandler, logger)
	userHandler := httpAdapter.NewUserHandler(userService, errorHandler, logger)
	announcementHandler := httpAdapter.NewAnnouncementHandler(announcementService, errorHandler, logger)
	commentHandler := httpAdapter.NewCommentHandler(commentService, errorHandler, logger, commentLimiter)
	metricsHandler := httpAdapter.NewMetricsHandler(metricsService, errorHandler, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, hub, cfg.App.Version)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, httpAdapter.WebSocketConfig{
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		IsDevelopment:   cfg.IsDevelopment(),
	}, logger)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Route("/health", healthHandler.RegisterRoutes)

	// Real-time comment stream; public like the REST read path it mirrors
	r.Get("/comments", wsHandler.ServeHTTP)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if generalRateLimiter != nil {
			r.Use(generalRateLimiter.Middleware)
		}

		// Auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if authRateLimiter != nil {
				r.Use(authRateLimiter.Middleware)
			}
			r.Route("/auth", authHandler.RegisterRoutes)
		})

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/me", meHandler.RegisterRoutes)
			r.Route("/users", userHandler.RegisterRoutes)
			r.Route("/announcements", announcementHandler.RegisterRoutes)
			r.Route("/comments", commentHandler.RegisterRoutes)
			r.Route("/metrics", metricsHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Drain in-flight fan-out before closing connections and the pool.
	if err := broadcaster.Shutdown(shutdownCtx); err != nil {
		logger.Warn("comment broadcaster did not drain", "error", err)
	}
	if err := commentNotifier.Shutdown(shutdownCtx); err != nil {
		logger.Warn("comment notifier did not drain", "error", err)
	}
	hub.Close()

	logger.Info("server shutdown complete")
}
