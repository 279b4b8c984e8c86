// Package feedparser converts RSS and Atom documents into feed metadata and
// typed entries.
package feedparser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// ParseError reports a malformed document or an entry missing required fields
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse feed: %s: %v", e.Reason, e.Err)
	}
	return "parse feed: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EntryMeta is shared by every entry kind
type EntryMeta struct {
	Title     string
	Link      string
	Published time.Time
}

// Entry is either an InlineEntry or a DeferredEntry
type Entry interface {
	Meta() EntryMeta
	isEntry()
}

// InlineEntry carries its full content in the feed document
type InlineEntry struct {
	EntryMeta
	Content string
}

// DeferredEntry only links to its content, which must be fetched separately
type DeferredEntry struct {
	EntryMeta
}

func (e InlineEntry) Meta() EntryMeta   { return e.EntryMeta }
func (e DeferredEntry) Meta() EntryMeta { return e.EntryMeta }
func (InlineEntry) isEntry()            {}
func (DeferredEntry) isEntry()          {}

// Feed is a parsed document: its modification time and entries in document order
type Feed struct {
	UpdatedAt time.Time
	Entries   []Entry
}

// Parse reads an RSS, Atom or JSON feed document. All times are UTC.
// The feed timestamp falls back from <updated> to <published> to the newest
// entry; a document yielding none of them is a ParseError, as is an entry
// without a link or a date.
func Parse(raw []byte) (*Feed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Reason: "malformed document", Err: err}
	}

	feed := &Feed{Entries: make([]Entry, 0, len(parsed.Items))}
	var newest time.Time
	for i, item := range parsed.Items {
		entry, err := convert(item)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("entry %d", i), Err: err}
		}
		if p := entry.Meta().Published; p.After(newest) {
			newest = p
		}
		feed.Entries = append(feed.Entries, entry)
	}

	switch {
	case parsed.UpdatedParsed != nil:
		feed.UpdatedAt = parsed.UpdatedParsed.UTC()
	case parsed.PublishedParsed != nil:
		feed.UpdatedAt = parsed.PublishedParsed.UTC()
	case !newest.IsZero():
		feed.UpdatedAt = newest
	default:
		return nil, &ParseError{Reason: "no updated timestamp"}
	}
	return feed, nil
}

func convert(item *gofeed.Item) (Entry, error) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return nil, errors.New("missing link")
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	default:
		return nil, fmt.Errorf("missing published date for %s", link)
	}

	meta := EntryMeta{Title: strings.TrimSpace(item.Title), Link: link, Published: published}
	if strings.TrimSpace(item.Content) != "" {
		return InlineEntry{EntryMeta: meta, Content: item.Content}, nil
	}
	return DeferredEntry{EntryMeta: meta}, nil
}
