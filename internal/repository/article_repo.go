package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cryptomonitor/internal/database"
	"github.com/cryptomonitor/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

const articleColumns = `id, title, body, url, published, feed_id, created_at`

// Create inserts the article and its article_rules rows in one transaction
func (r *articleRepo) Create(ctx context.Context, in *models.ArticleCreate) (*models.Article, error) {
	article := &models.Article{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Body:      in.Body,
		URL:       in.URL,
		Published: in.Published.UTC(),
		FeedID:    in.FeedID,
		Rules:     append([]models.Rule(nil), in.Rules...),
		CreatedAt: time.Now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles (id, title, body, url, published, feed_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, article.ID, article.Title, article.Body, article.URL, article.Published, article.FeedID, article.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}

	for _, rule := range article.Rules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO article_rules (article_id, rule_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			article.ID, rule.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to attach rule %s: %w", rule.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return article, nil
}

// GetByID retrieves an article by ID with its matched rules
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	var article models.Article
	err := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id).Scan(
		&article.ID, &article.Title, &article.Body, &article.URL, &article.Published, &article.FeedID, &article.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadRules(ctx, []*models.Article{&article}); err != nil {
		return nil, err
	}
	return &article, nil
}

// List retrieves a page of articles, newest first
func (r *articleRepo) List(ctx context.Context, skip, limit int) ([]*models.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY published DESC, created_at DESC OFFSET $1 LIMIT $2`,
		skip, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		var article models.Article
		err := rows.Scan(
			&article.ID, &article.Title, &article.Body, &article.URL, &article.Published, &article.FeedID, &article.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		articles = append(articles, &article)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadRules(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *articleRepo) loadRules(ctx context.Context, articles []*models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	byID := make(map[string]*models.Article, len(articles))
	ids := make([]string, 0, len(articles))
	for _, a := range articles {
		a.Rules = []models.Rule{}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ar.article_id, r.id, r.name, r.pattern
		FROM article_rules ar JOIN rules r ON r.id = ar.rule_id
		WHERE ar.article_id = ANY($1::uuid[])
		ORDER BY r.created_at, r.name
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var articleID string
		var rule models.Rule
		if err := rows.Scan(&articleID, &rule.ID, &rule.Name, &rule.Pattern); err != nil {
			return err
		}
		if a, ok := byID[articleID]; ok {
			a.Rules = append(a.Rules, rule)
		}
	}
	return rows.Err()
}
