package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/google/uuid"
)

// Store is the shared in-memory state behind the mock repositories.
// Jobs need to see articles for URL deduplication, so all four mocks share it.
type Store struct {
	mu        sync.Mutex
	Feeds     map[string]*models.Feed
	FeedRules map[string][]string
	Rules     map[string]*models.Rule
	Jobs      map[string]*models.ArticleJob
	Articles  map[string]*models.Article
	clock     time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		Feeds:     make(map[string]*models.Feed),
		FeedRules: make(map[string][]string),
		Rules:     make(map[string]*models.Rule),
		Jobs:      make(map[string]*models.ArticleJob),
		Articles:  make(map[string]*models.Article),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering by update time is deterministic
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// NewRepositories returns mock repositories sharing one store
func NewRepositories() (*repository.Repositories, *MockFeedRepository, *MockRuleRepository, *MockArticleJobRepository, *MockArticleRepository) {
	store := NewStore()
	feeds := &MockFeedRepository{store: store}
	rules := &MockRuleRepository{store: store}
	jobs := &MockArticleJobRepository{store: store}
	articles := &MockArticleRepository{store: store}
	return &repository.Repositories{Feed: feeds, Rule: rules, Job: jobs, Article: articles}, feeds, rules, jobs, articles
}

// MockFeedRepository is a mock implementation of FeedRepository
type MockFeedRepository struct {
	store       *Store
	GetAllError error
	UpdateError error
	UpdateCalls int
	Writes      int
}

var _ repository.FeedRepository = (*MockFeedRepository)(nil)

// NewMockFeedRepository creates a feed repository with its own store
func NewMockFeedRepository() *MockFeedRepository {
	return &MockFeedRepository{store: NewStore()}
}

func (m *MockFeedRepository) withRules(f *models.Feed) *models.Feed {
	cp := *f
	cp.Rules = []models.Rule{}
	for _, id := range m.store.FeedRules[f.ID] {
		if r, ok := m.store.Rules[id]; ok {
			cp.Rules = append(cp.Rules, *r)
		}
	}
	return &cp
}

func (m *MockFeedRepository) sorted() []*models.Feed {
	feeds := make([]*models.Feed, 0, len(m.store.Feeds))
	for _, f := range m.store.Feeds {
		feeds = append(feeds, m.withRules(f))
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].CreatedAt.Before(feeds[j].CreatedAt) })
	return feeds
}

func (m *MockFeedRepository) GetAll(ctx context.Context) ([]*models.Feed, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	return m.sorted(), nil
}

func (m *MockFeedRepository) List(ctx context.Context, skip, limit int) ([]*models.Feed, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return page(m.sorted(), skip, limit), nil
}

func (m *MockFeedRepository) GetByID(ctx context.Context, id string) (*models.Feed, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	f, ok := m.store.Feeds[id]
	if !ok {
		return nil, nil
	}
	return m.withRules(f), nil
}

func (m *MockFeedRepository) Create(ctx context.Context, feed *models.Feed) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, f := range m.store.Feeds {
		if f.URL == feed.URL {
			return repository.ErrDuplicate
		}
	}
	if feed.ID == "" {
		feed.ID = uuid.New().String()
	}
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = m.store.tick()
	}
	cp := *feed
	cp.Rules = nil
	m.store.Feeds[feed.ID] = &cp
	return nil
}

func (m *MockFeedRepository) AttachRule(ctx context.Context, feedID, ruleID string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, id := range m.store.FeedRules[feedID] {
		if id == ruleID {
			return nil
		}
	}
	m.store.FeedRules[feedID] = append(m.store.FeedRules[feedID], ruleID)
	return nil
}

func (m *MockFeedRepository) Update(ctx context.Context, id string, update models.FeedUpdate) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	f, ok := m.store.Feeds[id]
	if !ok {
		return false, nil
	}
	changed := false
	if update.LastUpdated != nil && (f.LastUpdated == nil || update.LastUpdated.After(*f.LastUpdated)) {
		v := *update.LastUpdated
		f.LastUpdated = &v
		changed = true
	}
	if update.LastArticleDate != nil && (f.LastArticleDate == nil || update.LastArticleDate.After(*f.LastArticleDate)) {
		v := *update.LastArticleDate
		f.LastArticleDate = &v
		changed = true
	}
	if changed {
		m.Writes++
	}
	return changed, nil
}

// Feed returns a copy of the stored feed, nil if absent
func (m *MockFeedRepository) Feed(id string) *models.Feed {
	f, _ := m.GetByID(context.Background(), id)
	return f
}

// MockRuleRepository is a mock implementation of RuleRepository
type MockRuleRepository struct {
	store       *Store
	CreateError error
}

var _ repository.RuleRepository = (*MockRuleRepository)(nil)

func (m *MockRuleRepository) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.Rules[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MockRuleRepository) GetByPattern(ctx context.Context, pattern string) (*models.Rule, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, r := range m.store.Rules {
		if r.Pattern == pattern {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	for _, r := range m.store.Rules {
		if r.Pattern == rule.Pattern || r.Name == rule.Name {
			return repository.ErrDuplicate
		}
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	cp := *rule
	m.store.Rules[rule.ID] = &cp
	return nil
}

func (m *MockRuleRepository) List(ctx context.Context, skip, limit int) ([]*models.Rule, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	rules := make([]*models.Rule, 0, len(m.store.Rules))
	for _, r := range m.store.Rules {
		cp := *r
		rules = append(rules, &cp)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return page(rules, skip, limit), nil
}

// MockArticleJobRepository is a mock implementation of ArticleJobRepository
type MockArticleJobRepository struct {
	store       *Store
	CreateError error
	// Transitions records every status written, in order
	Transitions []Transition
}

// Transition is one recorded job status change
type Transition struct {
	JobID  string
	Status models.JobStatus
}

var _ repository.ArticleJobRepository = (*MockArticleJobRepository)(nil)

func (m *MockArticleJobRepository) Create(ctx context.Context, job *models.ArticleJob) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	for _, j := range m.store.Jobs {
		if j.URL == job.URL {
			return repository.ErrDuplicate
		}
	}
	for _, a := range m.store.Articles {
		if a.URL == job.URL {
			return repository.ErrDuplicate
		}
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := m.store.tick()
	job.Status = models.JobStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now
	cp := *job
	m.store.Jobs[job.ID] = &cp
	return nil
}

// Put stores a job as-is, for seeding test state
func (m *MockArticleJobRepository) Put(job *models.ArticleJob) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = m.store.tick()
	}
	cp := *job
	m.store.Jobs[job.ID] = &cp
}

func (m *MockArticleJobRepository) byStatus(status models.JobStatus) []*models.ArticleJob {
	var jobs []*models.ArticleJob
	for _, j := range m.store.Jobs {
		if status == "" || j.Status == status {
			cp := *j
			jobs = append(jobs, &cp)
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].UpdatedAt.Before(jobs[k].UpdatedAt) })
	return jobs
}

func (m *MockArticleJobRepository) GetPending(ctx context.Context, limit int) ([]*models.ArticleJob, error) {
	return m.GetByStatus(ctx, models.JobStatusPending, limit)
}

func (m *MockArticleJobRepository) GetByStatus(ctx context.Context, status models.JobStatus, limit int) ([]*models.ArticleJob, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return page(m.byStatus(status), 0, limit), nil
}

func (m *MockArticleJobRepository) MarkAsProcessing(ctx context.Context, ids []string) ([]*models.ArticleJob, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var claimed []*models.ArticleJob
	for _, id := range ids {
		j, ok := m.store.Jobs[id]
		if !ok || j.Status != models.JobStatusPending {
			continue
		}
		j.Status = models.JobStatusProcessing
		j.UpdatedAt = m.store.tick()
		m.Transitions = append(m.Transitions, Transition{JobID: id, Status: models.JobStatusProcessing})
		cp := *j
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (m *MockArticleJobRepository) SetStatus(ctx context.Context, id string, status models.JobStatus) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	j, ok := m.store.Jobs[id]
	if !ok {
		return nil
	}
	j.Status = status
	j.UpdatedAt = m.store.tick()
	m.Transitions = append(m.Transitions, Transition{JobID: id, Status: status})
	return nil
}

func (m *MockArticleJobRepository) List(ctx context.Context, status models.JobStatus, skip, limit int) ([]*models.ArticleJob, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return page(m.byStatus(status), skip, limit), nil
}

// Job returns a copy of the stored job, nil if absent
func (m *MockArticleJobRepository) Job(id string) *models.ArticleJob {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	j, ok := m.store.Jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// All returns copies of every stored job
func (m *MockArticleJobRepository) All() []*models.ArticleJob {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.byStatus("")
}

// TransitionCount returns the number of recorded status writes
func (m *MockArticleJobRepository) TransitionCount() int {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return len(m.Transitions)
}

// MockArticleRepository is a mock implementation of ArticleRepository
type MockArticleRepository struct {
	store       *Store
	CreateError error
}

var _ repository.ArticleRepository = (*MockArticleRepository)(nil)

func (m *MockArticleRepository) Create(ctx context.Context, in *models.ArticleCreate) (*models.Article, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	for _, a := range m.store.Articles {
		if a.URL == in.URL {
			return nil, repository.ErrDuplicate
		}
	}
	article := &models.Article{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Body:      in.Body,
		URL:       in.URL,
		Published: in.Published,
		FeedID:    in.FeedID,
		Rules:     append([]models.Rule(nil), in.Rules...),
		CreatedAt: m.store.tick(),
	}
	cp := *article
	m.store.Articles[article.ID] = &cp
	return article, nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	a, ok := m.store.Articles[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MockArticleRepository) List(ctx context.Context, skip, limit int) ([]*models.Article, error) {
	return page(m.All(), skip, limit), nil
}

// All returns copies of every stored article, oldest first
func (m *MockArticleRepository) All() []*models.Article {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	articles := make([]*models.Article, 0, len(m.store.Articles))
	for _, a := range m.store.Articles {
		cp := *a
		articles = append(articles, &cp)
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].CreatedAt.Before(articles[j].CreatedAt) })
	return articles
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
