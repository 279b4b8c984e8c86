package models

import (
	"time"
)

// Feed represents a registered syndication source
type Feed struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	URL             string     `json:"url" db:"url"`
	LastUpdated     *time.Time `json:"last_updated,omitempty" db:"last_updated"`
	LastArticleDate *time.Time `json:"last_article_date,omitempty" db:"last_article_date"`
	Rules           []Rule     `json:"rules" db:"-"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// FeedUpdate carries the fields a poll cycle advanced. Nil fields are left untouched.
type FeedUpdate struct {
	LastUpdated     *time.Time
	LastArticleDate *time.Time
}

// IsEmpty reports whether the update would write nothing
func (u FeedUpdate) IsEmpty() bool {
	return u.LastUpdated == nil && u.LastArticleDate == nil
}

// FeedCreate is the registration request for a feed and its rules
type FeedCreate struct {
	Name  string       `json:"name" yaml:"name"`
	URL   string       `json:"url" yaml:"url"`
	Rules []RuleCreate `json:"rules" yaml:"rules"`
}
