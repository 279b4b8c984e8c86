// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cryptomonitor"

// Feed poll results
const (
	PollUpdated   = "updated"
	PollUnchanged = "unchanged"
	PollFailed    = "failed"
)

// Article sources
const (
	SourceInline  = "inline"
	SourceFetched = "fetched"
)

// Recorder owns a registry and the pipeline's collectors
type Recorder struct {
	registry *prometheus.Registry

	FeedPolls       *prometheus.CounterVec
	ArticleJobs     *prometheus.CounterVec
	ArticlesCreated *prometheus.CounterVec
	JobsQueued      prometheus.Counter
	FetchDuration   prometheus.Histogram
	Subscribers     prometheus.Gauge
}

// New creates a Recorder on a fresh registry, including Go runtime collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		FeedPolls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_polls_total",
				Help:      "Feed poll outcomes",
			},
			[]string{"result"},
		),
		ArticleJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "article_jobs_total",
				Help:      "Article jobs reaching a terminal status",
			},
			[]string{"status"},
		),
		ArticlesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_created_total",
				Help:      "Articles persisted after matching at least one rule",
			},
			[]string{"source"},
		),
		JobsQueued: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_queued_total",
				Help:      "Article jobs created by the feed poller",
			},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of article page fetches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "subscribers",
				Help:      "Currently registered broadcast subscribers",
			},
		),
	}
}

// RecordPoll counts one feed poll outcome
func (r *Recorder) RecordPoll(result string) {
	if r == nil {
		return
	}
	r.FeedPolls.WithLabelValues(result).Inc()
}

// RecordJob counts a job reaching status
func (r *Recorder) RecordJob(status string) {
	if r == nil {
		return
	}
	r.ArticleJobs.WithLabelValues(status).Inc()
}

// RecordArticle counts a created article
func (r *Recorder) RecordArticle(source string) {
	if r == nil {
		return
	}
	r.ArticlesCreated.WithLabelValues(source).Inc()
}

// RecordQueued counts a queued job
func (r *Recorder) RecordQueued() {
	if r == nil {
		return
	}
	r.JobsQueued.Inc()
}

// ObserveFetch records a fetch duration in seconds
func (r *Recorder) ObserveFetch(seconds float64) {
	if r == nil {
		return
	}
	r.FetchDuration.Observe(seconds)
}

// SetSubscribers sets the subscriber gauge
func (r *Recorder) SetSubscribers(n int) {
	if r == nil {
		return
	}
	r.Subscribers.Set(float64(n))
}

// Handler exposes the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
