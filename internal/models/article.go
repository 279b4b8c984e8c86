package models

import (
	"time"
)

// Article is a persisted, rule-matched piece of content
type Article struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	URL       string    `json:"url" db:"url"`
	Published time.Time `json:"published" db:"published"`
	FeedID    string    `json:"feed_id" db:"feed_id"`
	Rules     []Rule    `json:"rules" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ArticleCreate holds everything needed to persist an article and its matched rules
type ArticleCreate struct {
	Title     string
	Body      string
	URL       string
	Published time.Time
	FeedID    string
	Rules     []Rule
}
