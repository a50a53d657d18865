// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
//   - which URL patterns map to which handler functions
//   - what middleware runs on every request
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go opens the store, builds the identity verifier and the payment
// processor, and hands them over in Deps. New then assembles:
//
//	repository.Store → guard.Guard → services → handlers → routes
//
// This is the "composition root": every dependency is wired in one place.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/life-journal/internal/auth"
	"github.com/sakif/life-journal/internal/guard"
	"github.com/sakif/life-journal/internal/handler"
	"github.com/sakif/life-journal/internal/middleware"
	"github.com/sakif/life-journal/internal/payment"
	"github.com/sakif/life-journal/internal/repository"
	"github.com/sakif/life-journal/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port                 int
	CORSOrigins          []string
	TopContributorsLimit int
	ShutdownTimeout      time.Duration
}

// Deps are the long-lived collaborators created by main.
//
// Payments may be nil: the payment routes then answer 503.
type Deps struct {
	Store    repository.Store
	Verifier auth.Verifier
	Payments payment.Processor
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store handle. Start closes it after the HTTP server
// has drained, so no in-flight request loses its connection.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	store    repository.Store
	registry *prometheus.Registry
}

// New wires the router. It never opens or closes resources itself.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("server: identity verifier is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    deps.Store,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.setupRoutes(deps)
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique ID to each request (for tracing)
//  2. RealIP: extracts the real client IP from proxy headers
//  3. Recoverer: catches panics and returns 500 instead of crashing
//  4. CORS: answers preflights before any handler runs
//  5. Logger and metrics: see the final status of every request
func (s *Server) setupRoutes(deps Deps) {
	metrics := middleware.NewMetrics(s.registry)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "Stripe-Signature"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Middleware)

	// === DEPENDENCY CHAIN ===
	// The guard and services receive repository interfaces; handlers receive
	// services. No handler touches the store directly.
	store := deps.Store
	g := guard.New(store.Lessons(), store.Users())

	lessonService := service.NewLessonService(store.Lessons(), store.Reports(), g, s.logger)
	userService := service.NewUserService(store.Users(), store.Lessons(), g, s.logger)
	commentService := service.NewCommentService(store.Comments(), s.logger)
	analyticsService := service.NewAnalyticsService(store, g, s.config.TopContributorsLimit, s.logger)
	paymentService := service.NewPaymentService(deps.Payments, store.Users(), s.logger)

	home := handler.NewHomeHandler(store, s.logger)
	lessons := handler.NewLessonHandler(lessonService, deps.Verifier, s.logger)
	users := handler.NewUserHandler(userService, deps.Verifier, s.logger)
	comments := handler.NewCommentHandler(commentService, s.logger)
	analytics := handler.NewAnalyticsHandler(analyticsService, deps.Verifier, s.logger)
	payments := handler.NewPaymentHandler(paymentService, s.logger)

	s.router.Get("/", home.HandleRoot)
	s.router.Get("/health", home.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Route("/lessons", func(r chi.Router) {
		r.Get("/", lessons.HandleList)
		r.Post("/", lessons.HandleCreate)
		r.Get("/public", lessons.HandleListPublic)
		r.Get("/{id}", lessons.HandleGet)
		r.Put("/{id}", lessons.HandleUpdate)
		r.Delete("/{id}", lessons.HandleDelete)
		r.Patch("/{id}/like", lessons.HandleLike)
		r.Patch("/{id}/favorite", lessons.HandleFavorite)
		r.Post("/{id}/report", lessons.HandleReport)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/", users.HandleUpsert)
		r.Get("/role/{email}", users.HandleRole)
		r.Get("/favorites/{email}", users.HandleFavorites)
		r.Get("/{email}", users.HandleProfile)
	})

	s.router.Route("/comments", func(r chi.Router) {
		r.Post("/", comments.HandleCreate)
		r.Get("/", comments.HandleList)
		r.Delete("/{id}", comments.HandleDelete)
	})

	s.router.Post("/payment-checkout-session", payments.HandleCheckout)
	s.router.Patch("/payment/success", payments.HandleSuccess)
	s.router.Post("/webhook", payments.HandleWebhook)

	s.router.Get("/analytics/top-contributors-week", analytics.HandleTopContributors)
	s.router.Get("/analytics/most-saved-lessons", analytics.HandleMostSaved)

	// Every /admin route authenticates inside its handler and the service
	// layer checks the admin role through the guard.
	s.router.Route("/admin", func(r chi.Router) {
		r.Get("/analytics", analytics.HandleDashboard)
		r.Get("/users", users.HandleList)
		r.Patch("/users/{email}/role", users.HandleUpdateRole)
		r.Get("/reports", lessons.HandleListReports)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (ShutdownTimeout)
//  3. Close the store
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled. Split out of Start so tests can drive
// the shutdown without sending signals.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.Close(closeCtx); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
