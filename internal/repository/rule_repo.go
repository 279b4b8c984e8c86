package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cryptomonitor/internal/database"
	"github.com/cryptomonitor/internal/models"
	"github.com/google/uuid"
)

// ruleRepo is the concrete implementation of RuleRepository
type ruleRepo struct {
	db *database.DB
}

// NewRuleRepo creates a new rule repository
func NewRuleRepo(db *database.DB) RuleRepository {
	return &ruleRepo{db: db}
}

// GetByID retrieves a rule by id, nil if absent
func (r *ruleRepo) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	var rule models.Rule
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, pattern FROM rules WHERE id = $1`, id,
	).Scan(&rule.ID, &rule.Name, &rule.Pattern)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetByPattern retrieves the rule with the given pattern, nil if absent
func (r *ruleRepo) GetByPattern(ctx context.Context, pattern string) (*models.Rule, error) {
	var rule models.Rule
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, pattern FROM rules WHERE pattern = $1`, pattern,
	).Scan(&rule.ID, &rule.Name, &rule.Pattern)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts a new rule
func (r *ruleRepo) Create(ctx context.Context, rule *models.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rules (id, name, pattern, created_at) VALUES ($1, $2, $3, $4)`,
		rule.ID, rule.Name, rule.Pattern, time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// List retrieves a page of rules
func (r *ruleRepo) List(ctx context.Context, skip, limit int) ([]*models.Rule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, pattern FROM rules ORDER BY created_at, name OFFSET $1 LIMIT $2`, skip, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.Rule
	for rows.Next() {
		var rule models.Rule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Pattern); err != nil {
			return nil, err
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}
