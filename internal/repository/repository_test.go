package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cryptomonitor/internal/mocks"
	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
)

func TestMockArticleJobRepository_DuplicateURL(t *testing.T) {
	_, _, _, jobs, _ := mocks.NewRepositories()
	ctx := context.Background()

	job := &models.ArticleJob{Title: "T1", URL: "https://example.com/t1", Published: time.Now().UTC(), FeedID: "feed-1"}
	if err := jobs.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.Status != models.JobStatusPending {
		t.Errorf("Expected pending, got %s", job.Status)
	}

	again := &models.ArticleJob{Title: "T1 again", URL: "https://example.com/t1", FeedID: "feed-1"}
	err := jobs.Create(ctx, again)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
	if len(jobs.All()) != 1 {
		t.Errorf("Expected 1 job, got %d", len(jobs.All()))
	}
}

func TestMockArticleJobRepository_URLOwnedByArticle(t *testing.T) {
	_, _, _, jobs, articles := mocks.NewRepositories()
	ctx := context.Background()

	_, err := articles.Create(ctx, &models.ArticleCreate{Title: "A", URL: "https://example.com/a", FeedID: "feed-1"})
	if err != nil {
		t.Fatalf("Create article failed: %v", err)
	}

	err = jobs.Create(ctx, &models.ArticleJob{Title: "A", URL: "https://example.com/a", FeedID: "feed-1"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestMockArticleJobRepository_MarkAsProcessing(t *testing.T) {
	_, _, _, jobs, _ := mocks.NewRepositories()
	ctx := context.Background()

	jobs.Put(&models.ArticleJob{ID: "j1", URL: "u1", Status: models.JobStatusPending})
	jobs.Put(&models.ArticleJob{ID: "j2", URL: "u2", Status: models.JobStatusComplete})
	jobs.Put(&models.ArticleJob{ID: "j3", URL: "u3", Status: models.JobStatusPending})

	claimed, err := jobs.MarkAsProcessing(ctx, []string{"j1", "j2", "j3"})
	if err != nil {
		t.Fatalf("MarkAsProcessing failed: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("Expected 2 claimed jobs, got %d", len(claimed))
	}
	for _, j := range claimed {
		if j.Status != models.JobStatusProcessing {
			t.Errorf("Job %s: expected processing, got %s", j.ID, j.Status)
		}
	}
	if jobs.Job("j2").Status != models.JobStatusComplete {
		t.Error("Terminal job must not be claimed")
	}

	// Claiming again yields nothing
	claimed, _ = jobs.MarkAsProcessing(ctx, []string{"j1", "j3"})
	if len(claimed) != 0 {
		t.Errorf("Expected 0 claimed jobs, got %d", len(claimed))
	}
}

func TestMockArticleJobRepository_GetPendingOrder(t *testing.T) {
	_, _, _, jobs, _ := mocks.NewRepositories()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	jobs.Put(&models.ArticleJob{ID: "newer", URL: "u1", Status: models.JobStatusPending, UpdatedAt: base.Add(time.Hour)})
	jobs.Put(&models.ArticleJob{ID: "older", URL: "u2", Status: models.JobStatusPending, UpdatedAt: base})
	jobs.Put(&models.ArticleJob{ID: "other", URL: "u3", Status: models.JobStatusError, UpdatedAt: base})

	pending, err := jobs.GetPending(ctx, 1)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "older" {
		t.Errorf("Expected the least recently updated job first, got %+v", pending)
	}
}

func TestMockFeedRepository_UpdateIsMonotonic(t *testing.T) {
	_, feeds, _, _, _ := mocks.NewRepositories()
	ctx := context.Background()

	feed := &models.Feed{Name: "Feed", URL: "https://example.com/rss"}
	if err := feeds.Create(ctx, feed); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	t1 := t2.Add(-24 * time.Hour)

	changed, err := feeds.Update(ctx, feed.ID, models.FeedUpdate{LastUpdated: &t2, LastArticleDate: &t2})
	if err != nil || !changed {
		t.Fatalf("Expected first update to write, changed=%v err=%v", changed, err)
	}

	changed, _ = feeds.Update(ctx, feed.ID, models.FeedUpdate{LastUpdated: &t1, LastArticleDate: &t1})
	if changed {
		t.Error("Older timestamps must not be written")
	}

	stored := feeds.Feed(feed.ID)
	if !stored.LastUpdated.Equal(t2) || !stored.LastArticleDate.Equal(t2) {
		t.Errorf("Timestamps moved backwards: %v %v", stored.LastUpdated, stored.LastArticleDate)
	}
	if feeds.Writes != 1 {
		t.Errorf("Expected 1 write, got %d", feeds.Writes)
	}
}

func TestMockFeedRepository_DuplicateURL(t *testing.T) {
	_, feeds, _, _, _ := mocks.NewRepositories()
	ctx := context.Background()

	if err := feeds.Create(ctx, &models.Feed{Name: "A", URL: "https://example.com/rss"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := feeds.Create(ctx, &models.Feed{Name: "B", URL: "https://example.com/rss"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestMockFeedRepository_AttachRule(t *testing.T) {
	_, feeds, rules, _, _ := mocks.NewRepositories()
	ctx := context.Background()

	feed := &models.Feed{Name: "Feed", URL: "https://example.com/rss"}
	_ = feeds.Create(ctx, feed)
	rule := &models.Rule{Name: "hacks", Pattern: ".*hack.*"}
	_ = rules.Create(ctx, rule)

	// Attaching twice keeps a single link
	_ = feeds.AttachRule(ctx, feed.ID, rule.ID)
	_ = feeds.AttachRule(ctx, feed.ID, rule.ID)

	stored, err := feeds.GetByID(ctx, feed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(stored.Rules) != 1 || stored.Rules[0].Pattern != ".*hack.*" {
		t.Errorf("Unexpected rules: %+v", stored.Rules)
	}

	missing, err := feeds.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for a missing feed, got %v, %v", missing, err)
	}
}

func TestMockArticleRepository_DuplicateURL(t *testing.T) {
	_, _, _, _, articles := mocks.NewRepositories()
	ctx := context.Background()

	in := &models.ArticleCreate{Title: "A", URL: "https://example.com/a", FeedID: "feed-1",
		Rules: []models.Rule{{ID: "r1", Name: "hacks", Pattern: ".*hack.*"}}}
	article, err := articles.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if article.ID == "" || len(article.Rules) != 1 {
		t.Errorf("Unexpected article: %+v", article)
	}

	_, err = articles.Create(ctx, in)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}
