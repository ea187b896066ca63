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

	"versus-be/internal/config"
	"versus-be/internal/container"
	"versus-be/internal/handler"
	"versus-be/internal/middleware"
	"versus-be/pkg/logger"
)

// Resources holds all resources that need cleanup
type Resources struct {
	container *container.Container
	server    *http.Server
	log       *logger.Logger
	mu        sync.Mutex
	closed    bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	// Stop background workers before closing their stores
	if err := r.container.Services.Test.Stop(ctx); err != nil {
		r.log.WithError(err).Error("Failed to stop expiry sweep")
		errs = append(errs, fmt.Errorf("expiry sweep shutdown: %w", err))
	}
	if err := r.container.Services.Notifier.Stop(ctx); err != nil {
		r.log.WithError(err).Error("Failed to stop notification dispatcher")
		errs = append(errs, fmt.Errorf("notifier shutdown: %w", err))
	}

	r.container.Close()

	if len(errs) > 0 {
		r.log.WithField("error_count", len(errs)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting versus-be server")

	ctx := context.Background()
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Background workers: the expiry sweep and the notification dispatcher
	if err := c.Services.Test.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start expiry sweep")
	}
	if err := c.Services.Notifier.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start notification dispatcher")
	}

	router := setupRouter(c)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	resources := &Resources{
		container: c,
		server:    server,
		log:       log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()
	authService := c.Services.Auth

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	healthHandler := handler.NewHealthHandler(c)
	testHandler := handler.NewTestHandler(c.Services.Test, log)
	sessionHandler := handler.NewSessionHandler(c.Services.Session, log)
	categoryHandler := handler.NewCategoryHandler(c.Services.Category, log)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tests", func(r chi.Router) {
			// Public reads and the anonymous voting paths
			r.Get("/", testHandler.List)
			r.Get("/popular", testHandler.Popular)
			r.Get("/trend", testHandler.Trend)
			r.Get("/stats", testHandler.GlobalStats)
			r.Get("/{testID}", testHandler.Get)
			r.Get("/{testID}/results", testHandler.Results)
			r.Post("/{testID}/vote", testHandler.Vote)

			// Elimination sessions: guests allowed, owners resolved when a
			// token is present
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(authService, log))

				r.Post("/{testID}/sessions", sessionHandler.Start)
				r.Get("/{testID}/sessions/results", sessionHandler.Results)
				r.Get("/{testID}/sessions/{sessionID}", sessionHandler.Get)
				r.Post("/{testID}/sessions/{sessionID}/vote", sessionHandler.Vote)
				r.Delete("/{testID}/sessions/{sessionID}", sessionHandler.Delete)
			})

			// Admin lifecycle operations
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(authService, log))
				r.Use(middleware.RequireAdmin(log))

				r.Post("/", testHandler.Create)
				r.Patch("/{testID}", testHandler.Update)
				r.Delete("/{testID}", testHandler.Delete)
				r.Post("/{testID}/reset", testHandler.Reset)
			})
		})

		r.Get("/categories", categoryHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService, log))

			r.Get("/user/sessions", sessionHandler.MySessions)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
