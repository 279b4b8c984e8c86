package service

import (
	"context"

	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
)

// queryService is the concrete implementation of QueryService
type queryService struct {
	repos *repository.Repositories
}

func newQueryService(repos *repository.Repositories) *queryService {
	return &queryService{repos: repos}
}

func (s *queryService) ListFeeds(ctx context.Context, skip, limit int) ([]*models.Feed, error) {
	return s.repos.Feed.List(ctx, skip, limit)
}

func (s *queryService) GetFeed(ctx context.Context, id string) (*models.Feed, error) {
	return s.repos.Feed.GetByID(ctx, id)
}

func (s *queryService) ListRules(ctx context.Context, skip, limit int) ([]*models.Rule, error) {
	return s.repos.Rule.List(ctx, skip, limit)
}

func (s *queryService) GetRule(ctx context.Context, id string) (*models.Rule, error) {
	return s.repos.Rule.GetByID(ctx, id)
}

func (s *queryService) ListArticles(ctx context.Context, skip, limit int) ([]*models.Article, error) {
	return s.repos.Article.List(ctx, skip, limit)
}

func (s *queryService) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	return s.repos.Article.GetByID(ctx, id)
}

func (s *queryService) ListJobs(ctx context.Context, status models.JobStatus, skip, limit int) ([]*models.ArticleJob, error) {
	return s.repos.Job.List(ctx, status, skip, limit)
}
