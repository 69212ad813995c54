// Package server provides the HTTP server and routing for Panorama.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/config"
	"github.com/niveshio/panorama/internal/di"
	brokershandlers "github.com/niveshio/panorama/internal/modules/brokers/handlers"
	consolidationhandlers "github.com/niveshio/panorama/internal/modules/consolidation/handlers"
	"github.com/niveshio/panorama/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.Container.Databases(),
		cfg.Container.MarketStream,
		cfg.Container.Scheduler,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		container:      cfg.Container,
		systemHandlers: systemHandlers,
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via the API.
// Called after jobs are registered in main.go, before Start.
func (s *Server) SetJobs(refresh, cleanup, maintenance, backup scheduler.Job) {
	s.systemHandlers.SetJobs(refresh, cleanup, maintenance, backup)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	allowedOrigins := s.cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Liveness probe (before the API group, no dependencies)
	s.router.Get("/health", s.handleLiveness)

	s.router.Route("/api", func(r chi.Router) {
		// Readiness: database integrity
		r.Get("/health", s.systemHandlers.HandleHealth)

		// Operational snapshot and manual job triggers
		r.Route("/system", func(r chi.Router) {
			r.Get("/", s.systemHandlers.HandleSystem)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/refresh", s.systemHandlers.HandleTriggerRefresh)
				r.Post("/cleanup", s.systemHandlers.HandleTriggerCleanup)
				r.Post("/maintenance", s.systemHandlers.HandleTriggerMaintenance)
				r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
			})
		})

		// Consolidated portfolio, analytics, freshness
		portfolioHandler := consolidationhandlers.NewHandler(s.container.ConsolidationService, s.log)
		portfolioHandler.RegisterRoutes(r)

		// Broker connection registry
		brokerHandler := brokershandlers.NewHandler(s.container.BrokerService, s.log)
		brokerHandler.RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
