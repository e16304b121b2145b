package model

import "time"

// Feed is a parsed syndication document.
type Feed struct {
	// Feed-level title, empty when the document has none
	Title string
	Items []Item
}

// Item is one entry as returned by the feed parser.
type Item struct {
	Title   string
	Summary string
	// Dedupe key
	Link    string
	Company string
	// Publication and update times from the source, nil when absent or unparsable
	Published *time.Time
	Updated   *time.Time
}

// PublishedAt returns the publication time, falling back to the update time.
// It returns nil when neither is known.
func (i Item) PublishedAt() *time.Time {
	if i.Published != nil {
		return i.Published
	}
	return i.Updated
}

// JobMatch is an entry that passed the relevance filter, normalized for the digest.
type JobMatch struct {
	Title   string
	Link    string
	Summary string
	// ISO-8601 text or UnknownPublished
	Published   string
	PublishedAt *time.Time
	// Feed title or feed URL
	Source string
}

// UnknownPublished is rendered when an entry carries no usable timestamp.
const UnknownPublished = "Unknown"

// Digest is the deduplicated set of matches for one run.
type Digest struct {
	Matches     []JobMatch
	GeneratedAt time.Time
	// Optional overview written by a summarizer
	Intro string
}
