package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"vntrbirds-be/internal/config"
	"vntrbirds-be/internal/container"
	"vntrbirds-be/internal/handler"
	"vntrbirds-be/internal/middleware"
	"vntrbirds-be/pkg/logger"
)

// Resources holds all resources that need cleanup
type Resources struct {
	container    *container.Container
	server       *http.Server
	cancelStream context.CancelFunc
	log          *logger.Logger
	mu           sync.Mutex
	closed       bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	if r.cancelStream != nil {
		r.cancelStream()
	}

	if r.container != nil {
		// Stop the live projections before their feed goes away
		r.log.Info("Stopping live projections...")
		if err := r.container.Stop(ctx); err != nil {
			r.log.WithError(err).Error("Failed to stop live projections")
			errors = append(errors, fmt.Errorf("projection shutdown: %w", err))
		}

		// Close websocket clients, the change feed, Redis and the database pool
		if db := r.container.GetDB(); db != nil {
			healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
			if err := db.Health(healthCtx); err != nil {
				r.log.WithError(err).Warn("Database health check failed before closing")
			}
			healthCancel()
		}
		r.container.Close()
		r.log.Info("Connections closed")
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if cfg.AdminPassphrase == "" {
		log.Warn("ADMIN_PASSPHRASE is not set, admin login is disabled")
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting vntrbirds-be server")

	ctx := context.Background()

	// Create dependency injection container
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Load standings and the submissions flag, then follow the change feed
	if err := c.Start(ctx); err != nil {
		c.Close()
		log.WithError(err).Fatal("Failed to start live projections")
	}

	streamHandler := handler.NewStreamHandler(c.GetHub(), c.Services, cfg.AllowedOrigins, log)
	streamCtx, cancelStream := context.WithCancel(ctx)
	go streamHandler.Run(streamCtx)

	// Setup router
	router := setupRouter(c, streamHandler)

	// Create HTTP server. Uploads, exports and websockets extend their own deadlines.
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Create resources manager for cleanup
	resources := &Resources{
		container:    c,
		server:       server,
		cancelStream: cancelStream,
		log:          log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	// Setup cleanup function that will be called regardless of how the program exits
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container, streamHandler *handler.StreamHandler) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()
	services := c.Services
	cookies := handler.CookieOptionsFor(cfg)

	// Create router
	r := chi.NewRouter()

	// Setup middlewares
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins), log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics(c.Metrics))

	// Create handlers
	healthHandler := handler.NewHealthHandler(c)
	catalogHandler := handler.NewCatalogHandler(c.Catalog)
	sessionHandler := handler.NewSessionHandler(cookies, log)
	teamHandler := handler.NewTeamHandler(services.Registry, services.Hunt, cookies, log)
	submissionHandler := handler.NewSubmissionHandler(services.Intake, services.Settings, cfg.MaxUploadMemoryMB, log)
	leaderboardHandler := handler.NewLeaderboardHandler(services.Leaderboard, services.Settings, log)
	adminHandler := handler.NewAdminHandler(services, cookies, log)

	// Write endpoints share one per-IP bucket
	writeLimiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	requireAdmin := middleware.RequireAdmin(services.Admin, log)

	// Health check and metrics (no auth required)
	r.Get("/health", healthHandler.Check)
	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Websocket streams live for as long as the client stays
		r.Get("/leaderboard/stream", streamHandler.Leaderboard)
		r.Get("/settings/stream", streamHandler.Settings)
		r.Get("/teams/{teamId}/stream", streamHandler.Team)

		// Uploads run past the default timeout
		r.With(middleware.RateLimit(writeLimiter, log)).Post("/submissions", submissionHandler.Submit)

		// Exports download every stored file before answering
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Use(chiMiddleware.Timeout(10 * time.Minute))

			r.Get("/admin/export", adminHandler.Export)
			r.Get("/admin/export/leaderboard.xlsx", adminHandler.ExportStandings)
		})

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Compress(5))
			r.Use(chiMiddleware.Timeout(60 * time.Second))

			r.Get("/items", catalogHandler.ListItems)

			r.Get("/session", sessionHandler.GetSession)
			r.Delete("/session", sessionHandler.ClearSession)

			r.With(middleware.RateLimit(writeLimiter, log)).Post("/teams", teamHandler.CreateTeam)
			r.Get("/teams/joinable", teamHandler.ListJoinable)
			r.Post("/teams/{teamId}/join", teamHandler.JoinTeam)
			r.Get("/teams/{teamId}/progress", teamHandler.GetProgress)

			r.Get("/leaderboard", leaderboardHandler.GetLeaderboard)
			r.Get("/settings", leaderboardHandler.GetSettings)

			r.With(middleware.RateLimit(writeLimiter, log)).Post("/admin/login", adminHandler.Login)
			r.Post("/admin/logout", adminHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/admin/teams", adminHandler.ListTeams)
				r.Put("/admin/settings/submissions-open", adminHandler.SetSubmissionsOpen)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
