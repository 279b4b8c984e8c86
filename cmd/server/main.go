package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryptomonitor/internal/api"
	"github.com/cryptomonitor/internal/app"
	"github.com/cryptomonitor/internal/config"
	"github.com/cryptomonitor/internal/scheduler"
	"github.com/cryptomonitor/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting cryptomonitor server...")

	// Database, migrations, repositories and services
	a, err := app.Open(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	// Start ingestion loops
	runner := scheduler.NewRunner(log, cfg.Ingestion.StopOnError)
	if cfg.Ingestion.RunInServer {
		runner.Start(context.Background(), a.FeedTask(), a.ArticleTask())
		log.Info().
			Dur("feed_interval", cfg.Ingestion.FeedPollInterval).
			Dur("job_interval", cfg.Ingestion.JobPollInterval).
			Msg("Ingestion loops started")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := newServer(cfg, a, runner, log)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop ingestion loops; in-flight jobs still record their terminal status
	runner.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// newServer builds the HTTP server around the API router
func newServer(cfg *config.Config, a *app.App, loops api.LoopReporter, log zerolog.Logger) *http.Server {
	deps := api.Dependencies{
		Registry: a.Services.Registry,
		Query:    a.Services.Query,
		Loops:    loops,
		Stream:   a.Broadcaster,
		Metrics:  a.Metrics,
	}
	// A nil *database.DB must not end up inside the interface
	if a.DB != nil {
		deps.Health = a.DB
	}

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(deps, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}
}
