package service

import (
	"context"

	"github.com/cryptomonitor/internal/config"
	"github.com/cryptomonitor/internal/metrics"
	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/rules"
	"github.com/rs/zerolog"
)

// Fetcher retrieves a raw document
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Limiter blocks until a request to url may start
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Publisher receives every article right after it is persisted
type Publisher interface {
	Publish(article *models.Article)
}

// FeedPoller defines one feed polling cycle
type FeedPoller interface {
	PollFeeds(ctx context.Context) error
}

// ArticleWorker defines one article job processing cycle
type ArticleWorker interface {
	FetchPendingArticles(ctx context.Context) error
}

// Registry defines feed and rule registration
type Registry interface {
	RegisterFeed(ctx context.Context, req *models.FeedCreate) (*models.Feed, error)
	// CreateRule registers a standalone rule; repository.ErrDuplicate when its
	// name or pattern is taken
	CreateRule(ctx context.Context, req *models.RuleCreate) (*models.Rule, error)
}

// QueryService defines the read operations exposed over HTTP
type QueryService interface {
	ListFeeds(ctx context.Context, skip, limit int) ([]*models.Feed, error)
	GetFeed(ctx context.Context, id string) (*models.Feed, error)
	ListRules(ctx context.Context, skip, limit int) ([]*models.Rule, error)
	GetRule(ctx context.Context, id string) (*models.Rule, error)
	ListArticles(ctx context.Context, skip, limit int) ([]*models.Article, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	ListJobs(ctx context.Context, status models.JobStatus, skip, limit int) ([]*models.ArticleJob, error)
}

// Collaborators are the non-repository dependencies of the pipeline
type Collaborators struct {
	Fetcher   Fetcher
	Limiter   Limiter
	Publisher Publisher
	Matcher   *rules.Matcher
	Metrics   *metrics.Recorder
}

// Services holds all service interfaces
type Services struct {
	Poller   FeedPoller
	Worker   ArticleWorker
	Registry Registry
	Query    QueryService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg config.IngestionConfig, deps Collaborators, log zerolog.Logger) *Services {
	if deps.Matcher == nil {
		deps.Matcher = rules.NewMatcher(log)
	}
	writer := newArticleWriter(repos.Article, deps.Publisher, deps.Metrics, log)

	return &Services{
		Poller:   newFeedPoller(repos, deps, writer, cfg.FeedConcurrency, log),
		Worker:   newArticleWorker(repos, deps, writer, cfg.JobBatchSize, log),
		Registry: newRegistry(repos, log),
		Query:    newQueryService(repos),
	}
}
