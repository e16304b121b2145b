package fetcher

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/kovalyov-valentin/job-digest/internal/model"
	"github.com/samber/lo"
)

const (
	DefaultSummaryLimit = 400
	untitled            = "No title"
)

// Filter decides whether an entry is recent and relevant, and projects
// accepted entries into matches.
type Filter struct {
	keywords     []string
	startups     []string
	window       time.Duration
	summaryLimit int
}

// NewFilter trims and lower-cases both term lists and drops blank entries,
// since an empty substring would match every entry.
func NewFilter(keywords, startups []string, daysBack, summaryLimit int) *Filter {
	if summaryLimit <= 0 {
		summaryLimit = DefaultSummaryLimit
	}

	return &Filter{
		keywords:     normalizeTerms(keywords),
		startups:     normalizeTerms(startups),
		window:       time.Duration(daysBack) * 24 * time.Hour,
		summaryLimit: summaryLimit,
	}
}

// Matches reports whether the item passes the recency window ending at now
// and mentions any keyword or startup name.
func (f *Filter) Matches(item model.Item, now time.Time) bool {
	cutoff := now.Add(-f.window)

	// Entries without a usable timestamp are never excluded as stale
	if published := item.PublishedAt(); published != nil && published.Before(cutoff) {
		return false
	}

	text := strings.ToLower(strings.Join([]string{item.Title, item.Summary, item.Company}, " "))

	return containsAny(text, f.keywords) || containsAny(text, f.startups)
}

// Project normalizes an accepted item. sourceLabel is the feed title, or the feed URL when the title is empty.
func (f *Filter) Project(item model.Item, sourceLabel string) model.JobMatch {
	title := item.Title
	if strings.TrimSpace(title) == "" {
		title = untitled
	}

	match := model.JobMatch{
		Title:     title,
		Link:      item.Link,
		Summary:   f.Summary(item.Summary),
		Published: model.UnknownPublished,
		Source:    sourceLabel,
	}

	if published := item.PublishedAt(); published != nil {
		t := published.UTC()
		match.PublishedAt = &t
		match.Published = t.Format(time.RFC3339)
	}

	return match
}

// Summary converts markup to plain text, collapses whitespace and bounds the
// result to the configured number of characters.
func (f *Filter) Summary(raw string) string {
	return truncate(collapseSpaces(plainText(raw)), f.summaryLimit)
}

func normalizeTerms(terms []string) []string {
	return lo.FilterMap(terms, func(term string, _ int) (string, bool) {
		term = strings.ToLower(strings.TrimSpace(term))
		return term, term != ""
	})
}

func containsAny(text string, terms []string) bool {
	return lo.ContainsBy(terms, func(term string) bool {
		return strings.Contains(text, term)
	})
}

func plainText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	return doc.Text()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
