// Package pipeline runs one digest job: fetch, filter, dedupe, render, send.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kovalyov-valentin/job-digest/internal/digest"
	"github.com/kovalyov-valentin/job-digest/internal/fetcher"
	"github.com/kovalyov-valentin/job-digest/internal/storage"
	"github.com/kovalyov-valentin/job-digest/internal/summary"
)

var ErrNoFeeds = errors.New("no feeds configured")

type FeedFetcher interface {
	Fetch(ctx context.Context, urls []string, now time.Time) fetcher.Report
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Dispatcher interface {
	Send(ctx context.Context, msg digest.Message) error
}

type Archive interface {
	StoreRun(ctx context.Context, run storage.Run) error
}

// Result describes a completed run.
type Result struct {
	RunID       uuid.UUID
	Matches     int
	FailedFeeds int
}

type Runner struct {
	feeds      []string
	fetcher    FeedFetcher
	dispatcher Dispatcher
	logger     *slog.Logger

	// Optional collaborators
	summarizer Summarizer
	archive    Archive

	now func() time.Time
}

type Option func(*Runner)

func WithSummarizer(s Summarizer) Option {
	return func(r *Runner) { r.summarizer = s }
}

func WithArchive(a Archive) Option {
	return func(r *Runner) { r.archive = a }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(feeds []string, f FeedFetcher, d Dispatcher, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		feeds:      feeds,
		fetcher:    f,
		dispatcher: d,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one pass. Feed failures are logged and skipped; a delivery
// failure ends the run with an error. Intro and archive failures are logged only.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if len(r.feeds) == 0 {
		return Result{}, ErrNoFeeds
	}

	result := Result{RunID: uuid.New()}
	logger := r.logger.With(slog.String("run_id", result.RunID.String()))
	now := r.now().UTC()

	report := r.fetcher.Fetch(ctx, r.feeds, now)
	for _, failed := range report.Failed() {
		logger.Warn("failed to fetch feed", slog.String("feed", failed.URL), slog.Any("error", failed.Err))
	}
	result.FailedFeeds = len(report.Failed())

	d := digest.Aggregate(report.MatchesByFeed(), now)
	result.Matches = len(d.Matches)

	if r.summarizer != nil && len(d.Matches) > 0 {
		intro, err := r.summarizer.Summarize(ctx, summary.PromptText(d.Matches))
		if err != nil {
			logger.Warn("failed to summarize digest", slog.Any("error", err))
		}
		d.Intro = intro
	}

	msg, err := digest.Render(d)
	if err != nil {
		return result, err
	}

	if err := r.dispatcher.Send(ctx, msg); err != nil {
		return result, fmt.Errorf("deliver digest: %w", err)
	}

	logger.Info("digest sent",
		slog.Int("feeds", len(report.Results)),
		slog.Int("failed_feeds", result.FailedFeeds),
		slog.Int("matches", result.Matches))

	if r.archive != nil {
		err := r.archive.StoreRun(ctx, storage.Run{
			ID:          result.RunID,
			Subject:     msg.Subject,
			FailedFeeds: result.FailedFeeds,
			Digest:      d,
		})
		if err != nil {
			logger.Warn("failed to archive digest", slog.Any("error", err))
		}
	}

	return result, nil
}
