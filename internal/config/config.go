package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
	"github.com/samber/lo"
)

var (
	ErrInvalidDaysBack     = errors.New("days_back must not be negative")
	ErrInvalidSummaryLimit = errors.New("summary_limit must be positive")
	ErrInvalidSMTPPort     = errors.New("smtp_port must be between 1 and 65535")
)

// Config can be stored in hcl files; environment variables take precedence.
type Config struct {
	Feeds       string `hcl:"job_feeds" env:"JOB_FEEDS"`
	Keywords    string `hcl:"job_keywords" env:"JOB_KEYWORDS" default:"entry level|junior|intern|associate|fresher|data analyst|data analytics"`
	TopStartups string `hcl:"top_startups" env:"TOP_STARTUPS" default:"Flipkart|Swiggy|Zomato|Razorpay|BYJU'S|Freshworks|OYO|Unacademy|Postman|CRED"`

	DaysBack     int           `hcl:"days_back" env:"DAYS_BACK" default:"7"`
	SummaryLimit int           `hcl:"summary_limit" env:"SUMMARY_LIMIT" default:"400"`
	FeedTimeout  time.Duration `hcl:"feed_timeout" env:"FEED_TIMEOUT" default:"30s"`
	// auto, gofeed or rss
	FeedParser string `hcl:"feed_parser" env:"FEED_PARSER" default:"auto"`

	SMTPServer     string        `hcl:"smtp_server" env:"SMTP_SERVER"`
	SMTPPort       int           `hcl:"smtp_port" env:"SMTP_PORT" default:"587"`
	SMTPUser       string        `hcl:"smtp_user" env:"SMTP_USER"`
	SMTPPass       string        `hcl:"smtp_pass" env:"SMTP_PASS"`
	SMTPTimeout    time.Duration `hcl:"smtp_timeout" env:"SMTP_TIMEOUT" default:"30s"`
	RecipientEmail string        `hcl:"recipient_email" env:"RECIPIENT_EMAIL"`
	SenderEmail    string        `hcl:"sender_email" env:"SENDER_EMAIL"`

	EnrichEmptySummaries bool `hcl:"enrich_empty_summaries" env:"ENRICH_EMPTY_SUMMARIES" default:"false"`

	TelegramBotToken  string `hcl:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChannelID int64  `hcl:"telegram_channel_id" env:"TELEGRAM_CHANNEL_ID"`

	SummarizerProvider string `hcl:"summarizer_provider" env:"SUMMARIZER_PROVIDER" default:"openai"`
	OpenAIKey          string `hcl:"openai_key" env:"OPENAI_KEY"`
	OpenAIPrompt       string `hcl:"openai_prompt" env:"OPENAI_PROMPT"`
	AnthropicKey       string `hcl:"anthropic_key" env:"ANTHROPIC_KEY"`

	ArchiveDriver string `hcl:"archive_driver" env:"ARCHIVE_DRIVER" default:"postgres"`
	ArchiveDSN    string `hcl:"archive_dsn" env:"ARCHIVE_DSN"`

	// Cron expression; empty means run once and exit
	Schedule string `hcl:"digest_schedule" env:"DIGEST_SCHEDULE"`

	LogLevel  string `hcl:"log_level" env:"LOG_LEVEL" default:"info"`
	LogFormat string `hcl:"log_format" env:"LOG_FORMAT" default:"text"`
}

// DefaultFiles are looked up when Load is called without explicit paths.
var DefaultFiles = []string{"./jobdigest.hcl", "./jobdigest.local.hcl"}

// Load reads defaults, then files, then the environment. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = DefaultFiles
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.DaysBack < 0 {
		return ErrInvalidDaysBack
	}
	if c.SummaryLimit <= 0 {
		return ErrInvalidSummaryLimit
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return ErrInvalidSMTPPort
	}
	return nil
}

// HasFeeds reports whether the feed list is usable. An empty first element
// disables the run even when later elements are set, and so does a list of
// blank entries.
func (c Config) HasFeeds() bool {
	parts := strings.Split(c.Feeds, "|")
	return parts[0] != "" && len(c.FeedURLs()) > 0
}

// FeedURLs returns the configured feeds in order, trimmed, without blanks.
func (c Config) FeedURLs() []string {
	return splitList(c.Feeds, "|")
}

// KeywordList returns keywords lower-cased. Blank entries are kept; the filter skips them.
func (c Config) KeywordList() []string {
	return lo.Map(strings.Split(c.Keywords, "|"), func(k string, _ int) string {
		return strings.ToLower(k)
	})
}

func (c Config) StartupList() []string {
	return strings.Split(c.TopStartups, "|")
}

// Recipients splits the comma-separated recipient list.
func (c Config) Recipients() []string {
	return splitList(c.RecipientEmail, ",")
}

// Sender falls back to the SMTP username.
func (c Config) Sender() string {
	if c.SenderEmail != "" {
		return c.SenderEmail
	}
	return c.SMTPUser
}

func (c Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChannelID != 0
}

func splitList(raw, sep string) []string {
	return lo.Compact(lo.Map(strings.Split(raw, sep), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}
