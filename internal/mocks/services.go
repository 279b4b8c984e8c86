package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/service"
)

// MockFetcher serves canned bodies keyed by URL and records every call
type MockFetcher struct {
	mu        sync.Mutex
	Responses map[string][]byte
	Errors    map[string]error
	Calls     []string
	// OnFetch, when set, runs before the canned response is returned
	OnFetch func(url string)
}

var _ service.Fetcher = (*MockFetcher)(nil)

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Responses: make(map[string][]byte),
		Errors:    make(map[string]error),
	}
}

// Set replaces the body served for url
func (m *MockFetcher) Set(url string, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[url] = []byte(body)
	delete(m.Errors, url)
}

// Fail makes url return err
func (m *MockFetcher) Fail(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[url] = err
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, url)
	body, ok := m.Responses[url]
	err := m.Errors[url]
	hook := m.OnFetch
	m.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no response for %s", url)
	}
	return body, nil
}

// CallCount returns the number of fetches made
func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockLimiter records waits without pacing
type MockLimiter struct {
	mu    sync.Mutex
	Waits []string
	Err   error
}

var _ service.Limiter = (*MockLimiter)(nil)

func (m *MockLimiter) Wait(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Waits = append(m.Waits, url)
	return m.Err
}

// WaitCount returns the number of waits recorded
func (m *MockLimiter) WaitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Waits)
}

// MockPublisher records published articles
type MockPublisher struct {
	mu        sync.Mutex
	Published []*models.Article
}

var _ service.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(article *models.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, article)
}

// Count returns the number of published articles
func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}

// MockRegistry is a mock implementation of Registry
type MockRegistry struct {
	RegisterFunc   func(ctx context.Context, req *models.FeedCreate) (*models.Feed, error)
	Registered     []*models.FeedCreate
	CreateRuleFunc func(ctx context.Context, req *models.RuleCreate) (*models.Rule, error)
}

var _ service.Registry = (*MockRegistry)(nil)

func (m *MockRegistry) RegisterFeed(ctx context.Context, req *models.FeedCreate) (*models.Feed, error) {
	m.Registered = append(m.Registered, req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	feed := &models.Feed{ID: "feed-id", Name: req.Name, URL: req.URL, Rules: []models.Rule{}}
	for i, r := range req.Rules {
		feed.Rules = append(feed.Rules, models.Rule{ID: fmt.Sprintf("rule-%d", i), Name: r.Name, Pattern: r.Pattern})
	}
	return feed, nil
}

func (m *MockRegistry) CreateRule(ctx context.Context, req *models.RuleCreate) (*models.Rule, error) {
	if m.CreateRuleFunc != nil {
		return m.CreateRuleFunc(ctx, req)
	}
	return &models.Rule{ID: "rule-id", Name: req.Name, Pattern: req.Pattern}, nil
}

// MockQueryService is a mock implementation of QueryService backed by mock repositories
type MockQueryService struct {
	Repos *repository.Repositories
	Err   error
	// Calls records the last skip and limit seen
	LastSkip, LastLimit int
	LastStatus          models.JobStatus
}

var _ service.QueryService = (*MockQueryService)(nil)

// NewMockQueryService creates a query service over fresh mock repositories
func NewMockQueryService() (*MockQueryService, *MockFeedRepository, *MockArticleJobRepository, *MockArticleRepository) {
	repos, feeds, _, jobs, articles := NewRepositories()
	return &MockQueryService{Repos: repos}, feeds, jobs, articles
}

func (m *MockQueryService) ListFeeds(ctx context.Context, skip, limit int) ([]*models.Feed, error) {
	m.LastSkip, m.LastLimit = skip, limit
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Repos.Feed.List(ctx, skip, limit)
}

func (m *MockQueryService) GetFeed(ctx context.Context, id string) (*models.Feed, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Repos.Feed.GetByID(ctx, id)
}

func (m *MockQueryService) ListRules(ctx context.Context, skip, limit int) ([]*models.Rule, error) {
	m.LastSkip, m.LastLimit = skip, limit
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Repos.Rule.List(ctx, skip, limit)
}

func (m *MockQueryService) GetRule(ctx context.Context, id string) (*models.Rule, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Repos.Rule.GetByID(ctx, id)
}

func (m *MockQueryService) ListArticles(ctx context.Context, skip, limit int) ([]*models.Article, error) {
	m.LastSkip, m.LastLimit = skip, limit
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Repos.Article.List(ctx, skip, limit)
}

func (m *MockQueryService) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Repos.Article.GetByID(ctx, id)
}

func (m *MockQueryService) ListJobs(ctx context.Context, status models.JobStatus, skip, limit int) ([]*models.ArticleJob, error) {
	m.LastSkip, m.LastLimit, m.LastStatus = skip, limit, status
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Repos.Job.List(ctx, status, skip, limit)
}
