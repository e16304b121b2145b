package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/job-digest/internal/config"
	"github.com/kovalyov-valentin/job-digest/internal/enrich"
	"github.com/kovalyov-valentin/job-digest/internal/fetcher"
	"github.com/kovalyov-valentin/job-digest/internal/logging"
	"github.com/kovalyov-valentin/job-digest/internal/notifier"
	"github.com/kovalyov-valentin/job-digest/internal/pipeline"
	"github.com/kovalyov-valentin/job-digest/internal/source"
	"github.com/kovalyov-valentin/job-digest/internal/storage"
	"github.com/kovalyov-valentin/job-digest/internal/summary"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
)

const noFeedsMessage = "No feeds provided in JOB_FEEDS environment variable."

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Stdout, logger)
	cancel()

	os.Exit(code)
}

type digestRunner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// run returns the process exit code.
func run(ctx context.Context, cfg config.Config, stdout io.Writer, logger *slog.Logger) int {
	if !cfg.HasFeeds() {
		fmt.Fprintln(stdout, noFeedsMessage)
		return 0
	}

	runner, cleanup, err := newRunner(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", slog.Any("error", err))
		return 1
	}
	defer cleanup()

	if cfg.Schedule == "" {
		return runOnce(ctx, runner, stdout, logger)
	}

	if err := runScheduled(ctx, cfg.Schedule, runner, logger); err != nil {
		logger.Error("scheduler failed", slog.Any("error", err))
		return 1
	}
	return 0
}

func runOnce(ctx context.Context, runner digestRunner, stdout io.Writer, logger *slog.Logger) int {
	res, err := runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrNoFeeds):
		fmt.Fprintln(stdout, noFeedsMessage)
		return 0
	case err != nil:
		logger.Error("digest run failed", slog.Any("error", err))
		return 1
	}

	fmt.Fprintf(stdout, "Sent email with %d matches.\n", res.Matches)
	return 0
}

// runScheduled blocks until ctx is cancelled. A failed run is logged and
// the schedule continues.
func runScheduled(ctx context.Context, schedule string, runner digestRunner, logger *slog.Logger) error {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(schedule, func() {
		res, err := runner.Run(ctx)
		if err != nil {
			logger.Error("digest run failed", slog.Any("error", err))
			return
		}
		logger.Info("digest run completed",
			slog.String("run_id", res.RunID.String()),
			slog.Int("matches", res.Matches))
	})
	if err != nil {
		return fmt.Errorf("add schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.Info("scheduler started", slog.String("schedule", schedule))

	<-ctx.Done()
	// Wait for a run in progress
	<-c.Stop().Done()
	logger.Info("scheduler stopped")

	return nil
}

func newRunner(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pipeline.Runner, func(), error) {
	cleanup := func() {}
	httpClient := &http.Client{Timeout: cfg.FeedTimeout}

	parser, err := source.ParseParser(cfg.FeedParser)
	if err != nil {
		return nil, cleanup, err
	}

	var enricher fetcher.Enricher
	if cfg.EnrichEmptySummaries {
		enricher = enrich.NewPageSummarizer(httpClient)
	}

	feedFetcher := fetcher.NewFetcher(
		func(url string) fetcher.Source {
			return source.NewRSSSource(url, httpClient, source.WithParser(parser))
		},
		fetcher.NewFilter(cfg.KeywordList(), cfg.StartupList(), cfg.DaysBack, cfg.SummaryLimit),
		enricher,
		logger,
	)

	email, extra, err := newChannels(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	opts := []pipeline.Option{}
	if s := newSummarizer(cfg, logger); s != nil {
		opts = append(opts, pipeline.WithSummarizer(s))
	}

	if cfg.ArchiveDSN != "" {
		db, err := storage.Open(ctx, cfg.ArchiveDriver, cfg.ArchiveDSN)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { _ = db.Close() }

		archive := storage.NewArchiveStorage(db)
		if err := archive.Migrate(ctx); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		opts = append(opts, pipeline.WithArchive(archive))
	}

	runner := pipeline.NewRunner(
		cfg.FeedURLs(),
		feedFetcher,
		notifier.NewDispatcher(logger, email, extra...),
		logger,
		opts...,
	)

	return runner, cleanup, nil
}

// newChannels returns the email channel and, when configured, Telegram as an extra channel.
func newChannels(cfg config.Config) (notifier.Channel, []notifier.Channel, error) {
	email, err := notifier.NewEmailChannel(notifier.EmailConfig{
		Host:     cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.Sender(),
		To:       cfg.Recipients(),
		Timeout:  cfg.SMTPTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	var extra []notifier.Channel
	if cfg.TelegramEnabled() {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return nil, nil, fmt.Errorf("create telegram bot: %w", err)
		}
		extra = append(extra, notifier.NewTelegramChannel(botAPI, cfg.TelegramChannelID))
	}

	return email, extra, nil
}

func newSummarizer(cfg config.Config, logger *slog.Logger) pipeline.Summarizer {
	switch strings.ToLower(strings.TrimSpace(cfg.SummarizerProvider)) {
	case "claude", "anthropic":
		if cfg.AnthropicKey == "" {
			return nil
		}
		return summary.NewClaudeSummarizer(cfg.AnthropicKey, cfg.OpenAIPrompt, logger)
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil
		}
		return summary.NewOpenAISummarizer(cfg.OpenAIKey, cfg.OpenAIPrompt, logger)
	default:
		logger.Warn("unknown summarizer provider, intro disabled", slog.String("provider", cfg.SummarizerProvider))
		return nil
	}
}
