// Package server provides the HTTP server and routing for the risk service.
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

	"github.com/aristath/fundrisk/internal/config"
	"github.com/aristath/fundrisk/internal/database"
	"github.com/aristath/fundrisk/internal/metrics"
	"github.com/aristath/fundrisk/internal/modules/risk"
	riskhandlers "github.com/aristath/fundrisk/internal/modules/risk/handlers"
	"github.com/aristath/fundrisk/internal/modules/sessions"
	sessionhandlers "github.com/aristath/fundrisk/internal/modules/sessions/handlers"
	"github.com/aristath/fundrisk/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	SessionDB *database.DB
	Config    *config.Config
	Engine    *risk.Engine
	Sessions  *sessions.Repository
	Metrics   *metrics.Registry // nil disables /metrics and instrumentation
	Scheduler *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	sessionDB      *database.DB
	engine         *risk.Engine
	sessions       *sessions.Repository
	metrics        *metrics.Registry
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		sessionDB: cfg.SessionDB,
		engine:    cfg.Engine,
		sessions:  cfg.Sessions,
		metrics:   cfg.Metrics,
	}

	var counter SessionCounter
	if cfg.Sessions != nil {
		counter = cfg.Sessions
	}
	var jobs JobLister
	if cfg.Scheduler != nil {
		jobs = cfg.Scheduler
	}
	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.SessionDB, counter, jobs, cfg.Engine)

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
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	// Leave the interfaces nil, not typed-nil, when a dependency is absent.
	var recorder riskhandlers.Recorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	var store riskhandlers.CorrelationStore
	if s.sessions != nil {
		store = s.sessions
	}

	s.router.Route("/api", func(r chi.Router) {
		riskhandlers.NewHandler(s.engine, store, recorder, s.log).RegisterRoutes(r)

		if s.sessions != nil {
			sessionhandlers.NewHandler(s.sessions, s.log).RegisterRoutes(r)
		}

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
		})
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
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
