// Package app assembles the ingestion pipeline shared by the server and CLI binaries.
package app

import (
	"fmt"

	"github.com/cryptomonitor/internal/broadcast"
	"github.com/cryptomonitor/internal/config"
	"github.com/cryptomonitor/internal/database"
	"github.com/cryptomonitor/internal/fetch"
	"github.com/cryptomonitor/internal/metrics"
	"github.com/cryptomonitor/internal/ratelimit"
	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/rules"
	"github.com/cryptomonitor/internal/scheduler"
	"github.com/cryptomonitor/internal/service"
	"github.com/rs/zerolog"
)

// Task names
const (
	TaskFeeds    = "feeds"
	TaskArticles = "articles"
)

// App holds the wired components
type App struct {
	Config      *config.Config
	DB          *database.DB
	Repos       *repository.Repositories
	Services    *service.Services
	Broadcaster *broadcast.Broadcaster
	Metrics     *metrics.Recorder
	Limiter     *ratelimit.HostLimiter
	log         zerolog.Logger
}

// Open connects to the database, applies migrations and wires everything on top
func Open(cfg *config.Config, log zerolog.Logger) (*App, error) {
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a := Wire(cfg, repository.New(db), log)
	a.DB = db
	return a, nil
}

// Wire builds the pipeline over repos
func Wire(cfg *config.Config, repos *repository.Repositories, log zerolog.Logger) *App {
	ing := cfg.Ingestion
	recorder := metrics.New()

	bc := broadcast.New(ing.SubscriberBuffer, log)
	bc.OnChange = recorder.SetSubscribers

	limiter := ratelimit.New(ing.RequestDelay)
	client := fetch.NewClient(fetch.Options{
		Timeout:   ing.FetchTimeout,
		MaxBytes:  ing.FetchMaxBytes,
		UserAgent: ing.UserAgent,
	})

	services := service.NewServices(repos, ing, service.Collaborators{
		Fetcher:   client,
		Limiter:   limiter,
		Publisher: bc,
		Matcher:   rules.NewMatcher(log),
		Metrics:   recorder,
	}, log)

	return &App{
		Config:      cfg,
		Repos:       repos,
		Services:    services,
		Broadcaster: bc,
		Metrics:     recorder,
		Limiter:     limiter,
		log:         log,
	}
}

// FeedTask polls every registered feed once per interval
func (a *App) FeedTask() scheduler.Task {
	return scheduler.Task{
		Name:     TaskFeeds,
		Interval: a.Config.Ingestion.FeedPollInterval,
		Run:      a.Services.Poller.PollFeeds,
	}
}

// ArticleTask processes one batch of pending article jobs per interval
func (a *App) ArticleTask() scheduler.Task {
	return scheduler.Task{
		Name:     TaskArticles,
		Interval: a.Config.Ingestion.JobPollInterval,
		Run:      a.Services.Worker.FetchPendingArticles,
	}
}

// Close releases the database connection, if any
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
