package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cryptomonitor/internal/database"
	"github.com/cryptomonitor/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// articleJobRepo is the concrete implementation of ArticleJobRepository
type articleJobRepo struct {
	db *database.DB
}

// NewArticleJobRepo creates a new article job repository
func NewArticleJobRepo(db *database.DB) ArticleJobRepository {
	return &articleJobRepo{db: db}
}

const jobColumns = `id, title, url, published, feed_id, status, created_at, updated_at`

// Create inserts a pending job unless a job or an article already owns the URL
func (r *articleJobRepo) Create(ctx context.Context, job *models.ArticleJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO article_jobs (id, title, url, published, feed_id, status, created_at, updated_at)
		SELECT $1::uuid, $2::text, $3::text, $4::timestamptz, $5::uuid, 'pending', $6::timestamptz, $6::timestamptz
		WHERE NOT EXISTS (SELECT 1 FROM articles WHERE url = $3::text)
		ON CONFLICT (url) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		job.ID, job.Title, job.URL, job.Published.UTC(), job.FeedID, job.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrDuplicate
	}
	job.Status = models.JobStatusPending
	job.UpdatedAt = job.CreatedAt
	return nil
}

// GetPending retrieves up to limit pending jobs, least recently updated first
func (r *articleJobRepo) GetPending(ctx context.Context, limit int) ([]*models.ArticleJob, error) {
	return r.GetByStatus(ctx, models.JobStatusPending, limit)
}

// GetByStatus retrieves up to limit jobs in the given status, least recently updated first
func (r *articleJobRepo) GetByStatus(ctx context.Context, status models.JobStatus, limit int) ([]*models.ArticleJob, error) {
	query := `SELECT ` + jobColumns + ` FROM article_jobs WHERE status = $1 ORDER BY updated_at, created_at LIMIT $2`
	return scanJobs(r.db.QueryContext(ctx, query, status, limit))
}

// MarkAsProcessing atomically moves pending jobs to processing and returns the ones it claimed
func (r *articleJobRepo) MarkAsProcessing(ctx context.Context, ids []string) ([]*models.ArticleJob, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		UPDATE article_jobs SET status = 'processing', updated_at = now()
		WHERE id = ANY($1::uuid[]) AND status = 'pending'
		RETURNING ` + jobColumns
	return scanJobs(r.db.QueryContext(ctx, query, pq.Array(ids)))
}

// SetStatus records a job transition
func (r *articleJobRepo) SetStatus(ctx context.Context, id string, status models.JobStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE article_jobs SET status = $1, updated_at = now() WHERE id = $2`, status, id,
	)
	return err
}

// List retrieves a page of jobs, optionally filtered by status
func (r *articleJobRepo) List(ctx context.Context, status models.JobStatus, skip, limit int) ([]*models.ArticleJob, error) {
	if status == "" {
		query := `SELECT ` + jobColumns + ` FROM article_jobs ORDER BY updated_at DESC OFFSET $1 LIMIT $2`
		return scanJobs(r.db.QueryContext(ctx, query, skip, limit))
	}
	query := `SELECT ` + jobColumns + ` FROM article_jobs WHERE status = $1 ORDER BY updated_at DESC OFFSET $2 LIMIT $3`
	return scanJobs(r.db.QueryContext(ctx, query, status, skip, limit))
}

func scanJobs(rows *sql.Rows, err error) ([]*models.ArticleJob, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.ArticleJob
	for rows.Next() {
		var job models.ArticleJob
		err := rows.Scan(
			&job.ID, &job.Title, &job.URL, &job.Published, &job.FeedID,
			&job.Status, &job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		job.Published = job.Published.UTC()
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}
