package repository

import (
	"context"
	"errors"

	"github.com/cryptomonitor/internal/database"
	"github.com/cryptomonitor/internal/models"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when a create would violate a uniqueness constraint
var ErrDuplicate = errors.New("resource already exists")

// FeedRepository defines the interface for feed data operations
type FeedRepository interface {
	// GetAll returns every registered feed with its rules populated
	GetAll(ctx context.Context) ([]*models.Feed, error)
	List(ctx context.Context, skip, limit int) ([]*models.Feed, error)
	GetByID(ctx context.Context, id string) (*models.Feed, error)
	Create(ctx context.Context, feed *models.Feed) error
	AttachRule(ctx context.Context, feedID, ruleID string) error
	// Update writes only the fields of update that advance the stored values
	// and reports whether anything was written
	Update(ctx context.Context, id string, update models.FeedUpdate) (bool, error)
}

// RuleRepository defines the interface for rule data operations
type RuleRepository interface {
	GetByID(ctx context.Context, id string) (*models.Rule, error)
	GetByPattern(ctx context.Context, pattern string) (*models.Rule, error)
	Create(ctx context.Context, rule *models.Rule) error
	List(ctx context.Context, skip, limit int) ([]*models.Rule, error)
}

// ArticleJobRepository defines the interface for article job data operations
type ArticleJobRepository interface {
	// Create queues a pending job; ErrDuplicate when a job or article already has the URL
	Create(ctx context.Context, job *models.ArticleJob) error
	GetPending(ctx context.Context, limit int) ([]*models.ArticleJob, error)
	GetByStatus(ctx context.Context, status models.JobStatus, limit int) ([]*models.ArticleJob, error)
	// MarkAsProcessing moves the given pending jobs to processing in one statement
	MarkAsProcessing(ctx context.Context, ids []string) ([]*models.ArticleJob, error)
	SetStatus(ctx context.Context, id string, status models.JobStatus) error
	List(ctx context.Context, status models.JobStatus, skip, limit int) ([]*models.ArticleJob, error)
}

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	// Create persists the article and its matched rules atomically
	Create(ctx context.Context, article *models.ArticleCreate) (*models.Article, error)
	GetByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, skip, limit int) ([]*models.Article, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Feed    FeedRepository
	Rule    RuleRepository
	Job     ArticleJobRepository
	Article ArticleRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Feed:    NewFeedRepo(db),
		Rule:    NewRuleRepo(db),
		Job:     NewArticleJobRepo(db),
		Article: NewArticleRepo(db),
	}
}

// isUniqueViolation reports whether err is a Postgres unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
