package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/validation"
	"github.com/rs/zerolog"
)

// ErrRuleNameTaken is returned when a new pattern reuses an existing rule name
var ErrRuleNameTaken = errors.New("rule name already used by a different pattern")

// registry is the concrete implementation of Registry
type registry struct {
	feedRepo repository.FeedRepository
	ruleRepo repository.RuleRepository
	log      zerolog.Logger
}

func newRegistry(repos *repository.Repositories, log zerolog.Logger) *registry {
	return &registry{
		feedRepo: repos.Feed,
		ruleRepo: repos.Rule,
		log:      log.With().Str("service", "registry").Logger(),
	}
}

// RegisterFeed validates req, gets or creates each rule by pattern, creates
// the feed and links the rules. A feed URL that is already registered
// returns repository.ErrDuplicate.
func (r *registry) RegisterFeed(ctx context.Context, req *models.FeedCreate) (*models.Feed, error) {
	if errs := validation.ValidateFeed(req); len(errs) > 0 {
		return nil, errs
	}

	ruleSet := make([]*models.Rule, 0, len(req.Rules))
	for _, rc := range req.Rules {
		rule, err := r.getOrCreateRule(ctx, rc)
		if err != nil {
			return nil, err
		}
		ruleSet = append(ruleSet, rule)
	}

	feed := &models.Feed{
		Name:      strings.TrimSpace(req.Name),
		URL:       req.URL,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.feedRepo.Create(ctx, feed); err != nil {
		return nil, err
	}

	for _, rule := range ruleSet {
		if err := r.feedRepo.AttachRule(ctx, feed.ID, rule.ID); err != nil {
			return nil, fmt.Errorf("failed to attach rule %s: %w", rule.Name, err)
		}
	}

	r.log.Info().Str("feed_id", feed.ID).Str("feed_url", feed.URL).Int("rules", len(ruleSet)).Msg("Feed registered")
	return r.feedRepo.GetByID(ctx, feed.ID)
}

func (r *registry) CreateRule(ctx context.Context, req *models.RuleCreate) (*models.Rule, error) {
	if errs := validation.ValidateRule(req, ""); len(errs) > 0 {
		return nil, errs
	}

	rule := &models.Rule{Name: strings.TrimSpace(req.Name), Pattern: req.Pattern}
	if err := r.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	r.log.Info().Str("rule", rule.Name).Str("pattern", rule.Pattern).Msg("Rule created")
	return rule, nil
}

// getOrCreateRule returns the rule owning rc.Pattern, creating it when absent.
// A concurrent create of the same pattern is resolved by reading it back.
func (r *registry) getOrCreateRule(ctx context.Context, rc models.RuleCreate) (*models.Rule, error) {
	existing, err := r.ruleRepo.GetByPattern(ctx, rc.Pattern)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	rule := &models.Rule{Name: strings.TrimSpace(rc.Name), Pattern: rc.Pattern}
	err = r.ruleRepo.Create(ctx, rule)
	if errors.Is(err, repository.ErrDuplicate) {
		existing, err := r.ruleRepo.GetByPattern(ctx, rc.Pattern)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: %s", ErrRuleNameTaken, rule.Name)
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	r.log.Info().Str("rule", rule.Name).Str("pattern", rule.Pattern).Msg("Rule created")
	return rule, nil
}
