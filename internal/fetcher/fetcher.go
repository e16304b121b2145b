package fetcher

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kovalyov-valentin/job-digest/internal/model"
)

// Source is a single feed that can be fetched.
type Source interface {
	Fetch(ctx context.Context) (model.Feed, error)
}

// SourceFactory builds a Source for a feed URL.
type SourceFactory func(url string) Source

// Enricher supplies a summary for a posting whose feed entry has none.
type Enricher interface {
	Summary(ctx context.Context, link string) (string, error)
}

// FeedResult is the outcome for one feed: either matches or an error.
type FeedResult struct {
	URL   string
	Title string
	// Entries seen in the feed before filtering
	Entries int
	Matches []model.JobMatch
	Err     error
}

// Report holds feed results in configuration order.
type Report struct {
	Results []FeedResult
}

func (r Report) Failed() []FeedResult {
	var failed []FeedResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// MatchesByFeed returns the matches of successful feeds, in feed order.
func (r Report) MatchesByFeed() [][]model.JobMatch {
	var out [][]model.JobMatch
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res.Matches)
		}
	}
	return out
}

type Fetcher struct {
	newSource SourceFactory
	filter    *Filter
	// Optional, nil disables enrichment
	enricher Enricher
	logger   *slog.Logger
}

func NewFetcher(newSource SourceFactory, filter *Filter, enricher Enricher, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		newSource: newSource,
		filter:    filter,
		enricher:  enricher,
		logger:    logger,
	}
}

// Fetch processes feeds one at a time in list order. A failing feed yields a
// result with Err set and does not stop the others.
func (f *Fetcher) Fetch(ctx context.Context, urls []string, now time.Time) Report {
	var report Report

	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}

		report.Results = append(report.Results, f.fetchOne(ctx, url, now))
	}

	return report
}

func (f *Fetcher) fetchOne(ctx context.Context, url string, now time.Time) FeedResult {
	result := FeedResult{URL: url}

	feed, err := f.newSource(url).Fetch(ctx)
	if err != nil {
		result.Err = err
		return result
	}

	result.Title = feed.Title
	result.Entries = len(feed.Items)
	result.Matches = f.processItems(ctx, feed, url, now)

	f.logger.Debug("feed processed",
		slog.String("feed", url),
		slog.Int("entries", result.Entries),
		slog.Int("matches", len(result.Matches)))

	return result
}

func (f *Fetcher) processItems(ctx context.Context, feed model.Feed, url string, now time.Time) []model.JobMatch {
	label := feed.Title
	if label == "" {
		label = url
	}

	var matches []model.JobMatch
	for _, item := range feed.Items {
		if !f.filter.Matches(item, now) {
			continue
		}

		match := f.filter.Project(item, label)
		if match.Summary == "" {
			match.Summary = f.enrich(ctx, match.Link)
		}

		matches = append(matches, match)
	}

	return matches
}

func (f *Fetcher) enrich(ctx context.Context, link string) string {
	if f.enricher == nil || link == "" {
		return ""
	}

	summary, err := f.enricher.Summary(ctx, link)
	if err != nil {
		f.logger.Warn("failed to enrich summary", slog.String("link", link), slog.Any("error", err))
		return ""
	}

	return f.filter.Summary(summary)
}
