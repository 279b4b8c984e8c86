package models

import (
	"time"
)

// JobStatus represents the status of an article job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// ValidJobStatuses defines the statuses accepted in queries
var ValidJobStatuses = map[JobStatus]bool{
	JobStatusPending:    true,
	JobStatusProcessing: true,
	JobStatusComplete:   true,
	JobStatusError:      true,
}

// IsTerminal reports whether no further transition may leave the status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// ArticleJob is a deferred fetch for a feed entry without inline content
type ArticleJob struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	URL       string    `json:"url" db:"url"`
	Published time.Time `json:"published" db:"published"`
	FeedID    string    `json:"feed_id" db:"feed_id"`
	Status    JobStatus `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ArticleJobCreate is the input for queuing an article job
type ArticleJobCreate struct {
	Title     string
	URL       string
	Published time.Time
	FeedID    string
}
