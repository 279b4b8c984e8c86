package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptomonitor/internal/extract"
	"github.com/cryptomonitor/internal/metrics"
	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/rules"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// articleWorker is the concrete implementation of ArticleWorker
type articleWorker struct {
	jobRepo   repository.ArticleJobRepository
	feedRepo  repository.FeedRepository
	fetcher   Fetcher
	limiter   Limiter
	matcher   *rules.Matcher
	writer    *articleWriter
	metrics   *metrics.Recorder
	batchSize int
	log       zerolog.Logger
}

func newArticleWorker(repos *repository.Repositories, deps Collaborators, writer *articleWriter, batchSize int, log zerolog.Logger) *articleWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &articleWorker{
		jobRepo:   repos.Job,
		feedRepo:  repos.Feed,
		fetcher:   deps.Fetcher,
		limiter:   deps.Limiter,
		matcher:   deps.Matcher,
		writer:    writer,
		metrics:   deps.Metrics,
		batchSize: batchSize,
		log:       log.With().Str("service", "article_worker").Logger(),
	}
}

// FetchPendingArticles runs one batch. It does nothing while any job is still
// processing. Claimed jobs are marked processing before any network work and
// each ends complete or error; per-job failures are not returned.
func (w *articleWorker) FetchPendingArticles(ctx context.Context) error {
	inFlight, err := w.jobRepo.GetByStatus(ctx, models.JobStatusProcessing, 1)
	if err != nil {
		return fmt.Errorf("failed to check in-flight jobs: %w", err)
	}
	if len(inFlight) > 0 {
		w.log.Debug().Str("job_id", inFlight[0].ID).Msg("Previous batch still processing, skipping cycle")
		return nil
	}

	pending, err := w.jobRepo.GetPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, 0, len(pending))
	for _, job := range pending {
		ids = append(ids, job.ID)
	}
	claimed, err := w.jobRepo.MarkAsProcessing(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to claim jobs: %w", err)
	}

	feeds := w.resolveFeeds(ctx, claimed)

	var g errgroup.Group
	for _, job := range claimed {
		job := job
		g.Go(func() error {
			w.processJob(ctx, job, feeds[job.FeedID])
			return nil
		})
	}
	_ = g.Wait()

	w.log.Info().Int("jobs", len(claimed)).Msg("Article batch processed")
	return nil
}

// resolveFeeds loads each distinct owning feed once per batch. A feed that
// cannot be loaded maps to nil and its jobs end in error.
func (w *articleWorker) resolveFeeds(ctx context.Context, jobs []*models.ArticleJob) map[string]*models.Feed {
	feeds := make(map[string]*models.Feed)
	for _, job := range jobs {
		if _, ok := feeds[job.FeedID]; ok {
			continue
		}
		feed, err := w.feedRepo.GetByID(ctx, job.FeedID)
		if err != nil {
			w.log.Error().Err(err).Str("feed_id", job.FeedID).Msg("Failed to load feed for jobs")
		}
		feeds[job.FeedID] = feed
	}
	return feeds
}

func (w *articleWorker) processJob(ctx context.Context, job *models.ArticleJob, feed *models.Feed) {
	log := w.log.With().Str("job_id", job.ID).Str("url", job.URL).Logger()

	// Terminal status writes must survive shutdown, otherwise the job stays
	// processing and blocks every later cycle
	statusCtx := context.WithoutCancel(ctx)

	// Panic recovery - prevents runtime panics from crashing the entire process
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Job processing panicked - recovered")
			w.finish(statusCtx, job, models.JobStatusError, log)
		}
	}()

	status := models.JobStatusComplete
	if err := w.fetchArticle(ctx, job, feed); err != nil {
		log.Error().Err(err).Msg("Article job failed")
		status = models.JobStatusError
	}
	w.finish(statusCtx, job, status, log)
}

func (w *articleWorker) finish(ctx context.Context, job *models.ArticleJob, status models.JobStatus, log zerolog.Logger) {
	if err := w.jobRepo.SetStatus(ctx, job.ID, status); err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("Failed to record job status")
		return
	}
	w.metrics.RecordJob(string(status))
}

func (w *articleWorker) fetchArticle(ctx context.Context, job *models.ArticleJob, feed *models.Feed) error {
	if feed == nil {
		return fmt.Errorf("feed %s not found", job.FeedID)
	}

	if err := w.limiter.Wait(ctx, job.URL); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	raw, err := w.fetcher.Fetch(ctx, job.URL)
	w.metrics.ObserveFetch(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	body := extract.Text(raw)
	matched := w.matcher.Match(feed.Rules, body)
	if len(matched) == 0 {
		return nil
	}

	_, err = w.writer.create(ctx, &models.ArticleCreate{
		Title:     job.Title,
		Body:      body,
		URL:       job.URL,
		Published: job.Published,
		FeedID:    job.FeedID,
		Rules:     matched,
	}, metrics.SourceFetched)
	return err
}
