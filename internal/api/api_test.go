package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cryptomonitor/internal/api"
	"github.com/cryptomonitor/internal/broadcast"
	"github.com/cryptomonitor/internal/metrics"
	"github.com/cryptomonitor/internal/mocks"
	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/scheduler"
	"github.com/cryptomonitor/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(ctx context.Context) error { return f.err }

type fakeLoops []scheduler.TaskStatus

func (f fakeLoops) Status() []scheduler.TaskStatus { return f }

type testRouter struct {
	router   *gin.Engine
	registry *mocks.MockRegistry
	query    *mocks.MockQueryService
	feeds    *mocks.MockFeedRepository
	jobs     *mocks.MockArticleJobRepository
	articles *mocks.MockArticleRepository
	stream   *broadcast.Broadcaster
}

func setupTestRouter(t *testing.T, health error) *testRouter {
	t.Helper()
	gin.SetMode(gin.TestMode)

	query, feeds, jobs, articles := mocks.NewMockQueryService()
	tr := &testRouter{
		registry: &mocks.MockRegistry{},
		query:    query,
		feeds:    feeds,
		jobs:     jobs,
		articles: articles,
		stream:   broadcast.New(4, zerolog.Nop()),
	}
	tr.router = api.NewRouter(api.Dependencies{
		Registry: tr.registry,
		Query:    query,
		Health:   fakeHealth{err: health},
		Loops:    fakeLoops{{Name: "feeds", State: scheduler.StateRunning, Runs: 3}},
		Stream:   tr.stream,
		Metrics:  metrics.New(),
	}, zerolog.Nop())
	return tr
}

func (tr *testRouter) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	tr.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Invalid JSON response %q: %v", w.Body.String(), err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	tr := setupTestRouter(t, nil)

	w := tr.do("GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	loops, ok := response["loops"].([]interface{})
	if !ok || len(loops) != 1 {
		t.Fatalf("Expected one loop status, got %v", response["loops"])
	}
	if loops[0].(map[string]interface{})["state"] != scheduler.StateRunning {
		t.Errorf("Unexpected loop status %v", loops[0])
	}
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	tr := setupTestRouter(t, errors.New("connection refused"))

	w := tr.do("GET", "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if decode(t, w)["status"] != "unhealthy" {
		t.Error("Expected unhealthy status")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	tr := setupTestRouter(t, nil)

	w := tr.do("GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cryptomonitor_subscribers") {
		t.Error("Expected cryptomonitor metrics in exposition")
	}
}

func TestRegisterFeed(t *testing.T) {
	tr := setupTestRouter(t, nil)

	body := []byte(`{"name":"Blockworks","url":"https://blockworks.co/feed","rules":[{"name":"hacks","pattern":".*hack.*"}]}`)
	w := tr.do("POST", "/v1/feeds", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	if len(tr.registry.Registered) != 1 {
		t.Fatalf("Expected one registration, got %d", len(tr.registry.Registered))
	}
	req := tr.registry.Registered[0]
	if req.URL != "https://blockworks.co/feed" || len(req.Rules) != 1 || req.Rules[0].Pattern != ".*hack.*" {
		t.Errorf("Unexpected request %+v", req)
	}

	var feed models.Feed
	json.Unmarshal(w.Body.Bytes(), &feed)
	if feed.Name != "Blockworks" || len(feed.Rules) != 1 {
		t.Errorf("Unexpected response %+v", feed)
	}
}

func TestRegisterFeed_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		expected int
	}{
		{
			name:     "malformed body",
			body:     `{"name":`,
			expected: http.StatusBadRequest,
		},
		{
			name:     "validation failure",
			body:     `{"name":"","url":"ftp://x"}`,
			err:      validation.Errors{{Field: "name", Message: "name is required"}},
			expected: http.StatusBadRequest,
		},
		{
			name:     "duplicate url",
			body:     `{"name":"A","url":"https://a.example/feed"}`,
			err:      repository.ErrDuplicate,
			expected: http.StatusBadRequest,
		},
		{
			name:     "store failure",
			body:     `{"name":"A","url":"https://a.example/feed"}`,
			err:      errors.New("connection reset"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := setupTestRouter(t, nil)
			tr.registry.RegisterFunc = func(ctx context.Context, req *models.FeedCreate) (*models.Feed, error) {
				return nil, tt.err
			}

			w := tr.do("POST", "/v1/feeds", []byte(tt.body))
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}
}

func TestRegisterFeed_ValidationDetails(t *testing.T) {
	tr := setupTestRouter(t, nil)
	tr.registry.RegisterFunc = func(ctx context.Context, req *models.FeedCreate) (*models.Feed, error) {
		return nil, validation.Errors{{Field: "url", Message: "url must be an absolute http(s) URL"}}
	}

	w := tr.do("POST", "/v1/feeds", []byte(`{"name":"A","url":"nope"}`))
	details, ok := decode(t, w)["details"].([]interface{})
	if !ok || len(details) != 1 {
		t.Fatalf("Expected one validation detail, got %s", w.Body.String())
	}
	if details[0].(map[string]interface{})["field"] != "url" {
		t.Errorf("Unexpected detail %v", details[0])
	}
}

func TestGetFeed(t *testing.T) {
	tr := setupTestRouter(t, nil)
	feed := &models.Feed{Name: "Dailyhodl", URL: "https://dailyhodl.com/feed"}
	if err := tr.feeds.Create(context.Background(), feed); err != nil {
		t.Fatal(err)
	}

	w := tr.do("GET", "/v1/feeds/"+feed.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["url"] != feed.URL {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestGetFeed_NotFoundAndInvalidID(t *testing.T) {
	tr := setupTestRouter(t, nil)

	w := tr.do("GET", "/v1/feeds/6f1c2a4e-5b7d-4c3e-9a8b-1d2e3f4a5b6c", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = tr.do("GET", "/v1/feeds/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListFeeds_Pagination(t *testing.T) {
	tests := []struct {
		query         string
		expectedSkip  int
		expectedLimit int
	}{
		{"", 0, 100},
		{"?skip=5&limit=20", 5, 20},
		{"?limit=10000", 0, 500},
		{"?skip=-3&limit=abc", 0, 100},
		{"?limit=0", 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tr := setupTestRouter(t, nil)
			w := tr.do("GET", "/v1/feeds"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if tr.query.LastSkip != tt.expectedSkip || tr.query.LastLimit != tt.expectedLimit {
				t.Errorf("Expected skip=%d limit=%d, got skip=%d limit=%d",
					tt.expectedSkip, tt.expectedLimit, tr.query.LastSkip, tr.query.LastLimit)
			}
		})
	}
}

func TestListRules(t *testing.T) {
	tr := setupTestRouter(t, nil)
	rules := tr.query.Repos.Rule
	if err := rules.Create(context.Background(), &models.Rule{Name: "hacks", Pattern: ".*hack.*"}); err != nil {
		t.Fatal(err)
	}

	w := tr.do("GET", "/v1/rules", nil)
	items, _ := decode(t, w)["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("Expected 1 rule, got %s", w.Body.String())
	}
}

func TestCreateRule(t *testing.T) {
	tr := setupTestRouter(t, nil)

	w := tr.do("POST", "/v1/rules", []byte(`{"name":"listings","pattern":".*list.*"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["name"] != "listings" || response["pattern"] != ".*list.*" || response["id"] == "" {
		t.Errorf("Unexpected response %v", response)
	}
}

func TestCreateRule_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		expected int
	}{
		{"malformed body", `{"name":`, nil, http.StatusBadRequest},
		{"validation failure", `{"name":"x","pattern":"(unclosed"}`,
			validation.Errors{{Field: "pattern", Message: "pattern does not compile"}}, http.StatusBadRequest},
		{"duplicate", `{"name":"hacks","pattern":".*hack.*"}`, repository.ErrDuplicate, http.StatusBadRequest},
		{"store failure", `{"name":"hacks","pattern":".*hack.*"}`, errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := setupTestRouter(t, nil)
			tr.registry.CreateRuleFunc = func(ctx context.Context, req *models.RuleCreate) (*models.Rule, error) {
				return nil, tt.err
			}

			w := tr.do("POST", "/v1/rules", []byte(tt.body))
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetRule(t *testing.T) {
	tr := setupTestRouter(t, nil)
	rule := &models.Rule{Name: "hacks", Pattern: ".*hack.*"}
	if err := tr.query.Repos.Rule.Create(context.Background(), rule); err != nil {
		t.Fatal(err)
	}

	w := tr.do("GET", "/v1/rules/"+rule.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["pattern"] != rule.Pattern {
		t.Errorf("Unexpected body %s", w.Body.String())
	}

	w = tr.do("GET", "/v1/rules/6f1c2a4e-5b7d-4c3e-9a8b-1d2e3f4a5b6c", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = tr.do("GET", "/v1/rules/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestArticles(t *testing.T) {
	tr := setupTestRouter(t, nil)
	article, err := tr.articles.Create(context.Background(), &models.ArticleCreate{
		Title:     "Exchange hacked",
		Body:      "Exchange hacked overnight",
		URL:       "https://cointelegraph.com/news/exchange-hacked",
		Published: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		FeedID:    "feed-1",
		Rules:     []models.Rule{{ID: "r1", Name: "hacks", Pattern: ".*hack.*"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	w := tr.do("GET", "/v1/articles", nil)
	items, _ := decode(t, w)["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 article, got %s", w.Body.String())
	}

	w = tr.do("GET", "/v1/articles/"+article.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var got models.Article
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.URL != article.URL || len(got.Rules) != 1 || got.Rules[0].Name != "hacks" {
		t.Errorf("Unexpected article %+v", got)
	}

	w = tr.do("GET", "/v1/articles/6f1c2a4e-5b7d-4c3e-9a8b-1d2e3f4a5b6c", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestListJobs(t *testing.T) {
	tr := setupTestRouter(t, nil)
	tr.jobs.Put(&models.ArticleJob{ID: "j1", URL: "https://a.example/1", FeedID: "f", Status: models.JobStatusError})
	tr.jobs.Put(&models.ArticleJob{ID: "j2", URL: "https://a.example/2", FeedID: "f", Status: models.JobStatusComplete})

	w := tr.do("GET", "/v1/article-jobs?status=error", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if tr.query.LastStatus != models.JobStatusError {
		t.Errorf("Expected status filter 'error', got %q", tr.query.LastStatus)
	}
	items, _ := decode(t, w)["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("Expected 1 job, got %d", len(items))
	}

	w = tr.do("GET", "/v1/article-jobs?status=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestQueryFailure(t *testing.T) {
	tr := setupTestRouter(t, nil)
	tr.query.Err = errors.New("db down")

	w := tr.do("GET", "/v1/articles", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	tr := setupTestRouter(t, nil)

	w := tr.do("OPTIONS", "/v1/feeds", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStream(t *testing.T) {
	tr := setupTestRouter(t, nil)
	srv := httptest.NewServer(tr.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	waitFor(t, func() bool { return tr.stream.Count() == 1 })

	tr.stream.Publish(&models.Article{ID: "a1", Title: "Bridge exploit", URL: "https://blockworks.co/news/bridge-exploit"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.Article
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.ID != "a1" || got.Title != "Bridge exploit" {
		t.Errorf("Unexpected article %+v", got)
	}

	conn.Close()
	waitFor(t, func() bool { return tr.stream.Count() == 0 })
}
