// Package main is the entry point for the fund risk HTTP service.
//
// On startup it:
//  1. Loads configuration from the environment (and .env when present)
//  2. Opens the in-memory session database and applies its schema
//  3. Builds the risk engine with the configured horizon and confidence defaults
//  4. Registers the expired-session sweep with the scheduler
//  5. Starts the HTTP server and waits for SIGINT or SIGTERM
//
// Nothing is written to disk. Session state disappears with the process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/fundrisk/internal/config"
	"github.com/aristath/fundrisk/internal/database"
	"github.com/aristath/fundrisk/internal/metrics"
	"github.com/aristath/fundrisk/internal/modules/risk"
	"github.com/aristath/fundrisk/internal/modules/sessions"
	"github.com/aristath/fundrisk/internal/scheduler"
	"github.com/aristath/fundrisk/internal/server"
	"github.com/aristath/fundrisk/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Int("port", cfg.Port).
		Int("default_horizon", cfg.DefaultHorizonDays).
		Str("default_confidence", string(cfg.DefaultConfidence)).
		Dur("session_ttl", cfg.SessionTTL).
		Msg("Starting fund risk service")

	sessionDB, err := database.New(database.Config{Name: "sessions"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session database")
	}
	defer sessionDB.Close()

	if err := sessionDB.Migrate(sessions.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply session schema")
	}

	sessionRepo := sessions.NewRepository(sessionDB.Conn(), cfg.SessionTTL)

	engine := risk.NewEngine(risk.Defaults{
		HorizonDays: cfg.DefaultHorizonDays,
		Confidence:  cfg.DefaultConfidence,
	}, log)

	var registry *metrics.Registry
	var sweepObserver sessions.SweepObserver
	if cfg.MetricsEnabled {
		registry = metrics.NewRegistry()
		sweepObserver = registry
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SessionSweep, sessions.NewCleanupJob(sessionRepo, sweepObserver, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register session cleanup job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		SessionDB: sessionDB,
		Config:    cfg,
		Engine:    engine,
		Sessions:  sessionRepo,
		Metrics:   registry,
		Scheduler: sched,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
