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

// feedRepo is the concrete implementation of FeedRepository
type feedRepo struct {
	db *database.DB
}

// NewFeedRepo creates a new feed repository
func NewFeedRepo(db *database.DB) FeedRepository {
	return &feedRepo{db: db}
}

const feedColumns = `id, name, url, last_updated, last_article_date, created_at, updated_at`

// GetAll retrieves every feed with rules
func (r *feedRepo) GetAll(ctx context.Context) ([]*models.Feed, error) {
	return r.list(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY created_at`)
}

// List retrieves a page of feeds with rules
func (r *feedRepo) List(ctx context.Context, skip, limit int) ([]*models.Feed, error) {
	return r.list(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY created_at OFFSET $1 LIMIT $2`, skip, limit)
}

func (r *feedRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.Feed, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []*models.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadRules(ctx, feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

// GetByID retrieves a feed by ID with its rules
func (r *feedRepo) GetByID(ctx context.Context, id string) (*models.Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadRules(ctx, []*models.Feed{feed}); err != nil {
		return nil, err
	}
	return feed, nil
}

// Create inserts a new feed
func (r *feedRepo) Create(ctx context.Context, feed *models.Feed) error {
	if feed.ID == "" {
		feed.ID = uuid.New().String()
	}
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = time.Now().UTC()
	}
	feed.UpdatedAt = feed.CreatedAt

	query := `
		INSERT INTO feeds (id, name, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	_, err := r.db.ExecContext(ctx, query, feed.ID, feed.Name, feed.URL, feed.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// AttachRule links a rule to a feed, ignoring an existing link
func (r *feedRepo) AttachRule(ctx context.Context, feedID, ruleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feed_rules (feed_id, rule_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		feedID, ruleID,
	)
	return err
}

// Update advances last_updated and last_article_date in a single statement.
// Neither column ever moves backwards and the row is untouched when nothing advanced.
func (r *feedRepo) Update(ctx context.Context, id string, update models.FeedUpdate) (bool, error) {
	if update.IsEmpty() {
		return false, nil
	}

	query := `
		UPDATE feeds SET
			last_updated = CASE
				WHEN $2::timestamptz IS NOT NULL AND (last_updated IS NULL OR $2::timestamptz > last_updated)
				THEN $2::timestamptz ELSE last_updated END,
			last_article_date = CASE
				WHEN $3::timestamptz IS NOT NULL AND (last_article_date IS NULL OR $3::timestamptz > last_article_date)
				THEN $3::timestamptz ELSE last_article_date END,
			updated_at = now()
		WHERE id = $1 AND (
			($2::timestamptz IS NOT NULL AND (last_updated IS NULL OR $2::timestamptz > last_updated)) OR
			($3::timestamptz IS NOT NULL AND (last_article_date IS NULL OR $3::timestamptz > last_article_date))
		)
	`
	result, err := r.db.ExecContext(ctx, query, id, nullTime(update.LastUpdated), nullTime(update.LastArticleDate))
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// loadRules populates Rules on each feed with a single query
func (r *feedRepo) loadRules(ctx context.Context, feeds []*models.Feed) error {
	if len(feeds) == 0 {
		return nil
	}

	byID := make(map[string]*models.Feed, len(feeds))
	ids := make([]string, 0, len(feeds))
	for _, f := range feeds {
		f.Rules = []models.Rule{}
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}

	query := `
		SELECT fr.feed_id, r.id, r.name, r.pattern
		FROM feed_rules fr JOIN rules r ON r.id = fr.rule_id
		WHERE fr.feed_id = ANY($1::uuid[])
		ORDER BY r.created_at, r.name
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var feedID string
		var rule models.Rule
		if err := rows.Scan(&feedID, &rule.ID, &rule.Name, &rule.Pattern); err != nil {
			return err
		}
		if f, ok := byID[feedID]; ok {
			f.Rules = append(f.Rules, rule)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFeed(row rowScanner) (*models.Feed, error) {
	var feed models.Feed
	var lastUpdated, lastArticleDate sql.NullTime
	err := row.Scan(&feed.ID, &feed.Name, &feed.URL, &lastUpdated, &lastArticleDate, &feed.CreatedAt, &feed.UpdatedAt)
	if err != nil {
		return nil, err
	}
	feed.LastUpdated = timePtr(lastUpdated)
	feed.LastArticleDate = timePtr(lastArticleDate)
	return &feed, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
