package service

import (
	"context"
	"errors"

	"github.com/cryptomonitor/internal/metrics"
	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/rs/zerolog"
)

// articleWriter persists matched articles and publishes each one exactly once
type articleWriter struct {
	repo      repository.ArticleRepository
	publisher Publisher
	metrics   *metrics.Recorder
	log       zerolog.Logger
}

func newArticleWriter(repo repository.ArticleRepository, publisher Publisher, m *metrics.Recorder, log zerolog.Logger) *articleWriter {
	return &articleWriter{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		log:       log.With().Str("service", "articles").Logger(),
	}
}

// create returns (nil, nil) when the URL already has an article
func (w *articleWriter) create(ctx context.Context, in *models.ArticleCreate, source string) (*models.Article, error) {
	article, err := w.repo.Create(ctx, in)
	if errors.Is(err, repository.ErrDuplicate) {
		w.log.Info().Str("url", in.URL).Msg("Article already exists, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	w.metrics.RecordArticle(source)
	w.log.Info().
		Str("article_id", article.ID).
		Str("feed_id", article.FeedID).
		Str("url", article.URL).
		Strs("rules", ruleNames(article.Rules)).
		Str("source", source).
		Msg("Article created")

	if w.publisher != nil {
		w.publisher.Publish(article)
	}
	return article, nil
}

func ruleNames(rules []models.Rule) []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	return names
}
