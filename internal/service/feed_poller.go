package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cryptomonitor/internal/extract"
	"github.com/cryptomonitor/internal/feedparser"
	"github.com/cryptomonitor/internal/metrics"
	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/rules"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// feedPoller is the concrete implementation of FeedPoller
type feedPoller struct {
	feedRepo    repository.FeedRepository
	jobRepo     repository.ArticleJobRepository
	fetcher     Fetcher
	matcher     *rules.Matcher
	writer      *articleWriter
	metrics     *metrics.Recorder
	concurrency int
	log         zerolog.Logger
}

func newFeedPoller(repos *repository.Repositories, deps Collaborators, writer *articleWriter, concurrency int, log zerolog.Logger) *feedPoller {
	return &feedPoller{
		feedRepo:    repos.Feed,
		jobRepo:     repos.Job,
		fetcher:     deps.Fetcher,
		matcher:     deps.Matcher,
		writer:      writer,
		metrics:     deps.Metrics,
		concurrency: concurrency,
		log:         log.With().Str("service", "feed_poller").Logger(),
	}
}

// PollFeeds polls every registered feed concurrently. A failing feed is logged
// and left untouched; only failing to load the feed list is returned.
func (p *feedPoller) PollFeeds(ctx context.Context) error {
	feeds, err := p.feedRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load feeds: %w", err)
	}

	var g errgroup.Group
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}

	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			log := p.log.With().Str("feed_id", feed.ID).Str("feed_url", feed.URL).Logger()

			// Panic recovery keeps one bad document from taking down the cycle
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Feed poll panicked - recovered")
					p.metrics.RecordPoll(metrics.PollFailed)
				}
			}()

			result, err := p.pollFeed(ctx, feed, log)
			if err != nil {
				log.Error().Err(err).Msg("Feed poll failed")
				result = metrics.PollFailed
			}
			p.metrics.RecordPoll(result)
			return nil
		})
	}

	return g.Wait()
}

// pollFeed runs one feed through the update gate, the per-entry gate and the
// entry dispositions, then writes the advanced timestamps in one update
func (p *feedPoller) pollFeed(ctx context.Context, feed *models.Feed, log zerolog.Logger) (string, error) {
	raw, err := p.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return "", err
	}
	parsed, err := feedparser.Parse(raw)
	if err != nil {
		return "", err
	}

	if feed.LastUpdated != nil && !parsed.UpdatedAt.After(*feed.LastUpdated) {
		log.Debug().Time("updated", parsed.UpdatedAt).Msg("Feed unchanged")
		return metrics.PollUnchanged, nil
	}

	// Newness is judged against the stored watermark, not the running maximum
	watermark := feed.LastArticleDate
	var latest *time.Time
	queued, created := 0, 0

	for _, entry := range parsed.Entries {
		meta := entry.Meta()
		if watermark != nil && !meta.Published.After(*watermark) {
			continue
		}
		if latest == nil || meta.Published.After(*latest) {
			published := meta.Published
			latest = &published
		}

		switch e := entry.(type) {
		case feedparser.InlineEntry:
			ok, err := p.createInline(ctx, feed, e)
			if err != nil {
				return "", fmt.Errorf("entry %s: %w", meta.Link, err)
			}
			if ok {
				created++
			}
		case feedparser.DeferredEntry:
			ok, err := p.queue(ctx, feed, e, log)
			if err != nil {
				return "", fmt.Errorf("entry %s: %w", meta.Link, err)
			}
			if ok {
				queued++
			}
		}
	}

	updatedAt := parsed.UpdatedAt
	update := models.FeedUpdate{LastUpdated: &updatedAt, LastArticleDate: latest}
	if _, err := p.feedRepo.Update(ctx, feed.ID, update); err != nil {
		return "", fmt.Errorf("failed to update feed: %w", err)
	}

	log.Info().
		Time("updated", parsed.UpdatedAt).
		Int("entries", len(parsed.Entries)).
		Int("queued", queued).
		Int("created", created).
		Msg("Feed polled")
	return metrics.PollUpdated, nil
}

func (p *feedPoller) createInline(ctx context.Context, feed *models.Feed, entry feedparser.InlineEntry) (bool, error) {
	body := extract.String(entry.Content)
	matched := p.matcher.Match(feed.Rules, body)
	if len(matched) == 0 {
		return false, nil
	}

	article, err := p.writer.create(ctx, &models.ArticleCreate{
		Title:     entry.Title,
		Body:      body,
		URL:       entry.Link,
		Published: entry.Published,
		FeedID:    feed.ID,
		Rules:     matched,
	}, metrics.SourceInline)
	return article != nil, err
}

func (p *feedPoller) queue(ctx context.Context, feed *models.Feed, entry feedparser.DeferredEntry, log zerolog.Logger) (bool, error) {
	job := &models.ArticleJob{
		Title:     entry.Title,
		URL:       entry.Link,
		Published: entry.Published,
		FeedID:    feed.ID,
		CreatedAt: time.Now().UTC(),
	}
	err := p.jobRepo.Create(ctx, job)
	if errors.Is(err, repository.ErrDuplicate) {
		log.Info().Str("url", entry.Link).Msg("Article job already exists, skipping")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	p.metrics.RecordQueued()
	log.Debug().Str("job_id", job.ID).Str("url", job.URL).Msg("Article job queued")
	return true, nil
}
