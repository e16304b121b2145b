package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/kovalyov-valentin/job-digest/internal/model"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrUnknownParser    = errors.New("unknown feed parser")
)

// Parser selects how a downloaded document is decoded.
type Parser string

const (
	// ParserAuto tries gofeed first and falls back to SlyMarbo/rss.
	ParserAuto Parser = "auto"
	// ParserGofeed uses only gofeed.
	ParserGofeed Parser = "gofeed"
	// ParserRSS uses only SlyMarbo/rss.
	ParserRSS Parser = "rss"
)

// ParseParser maps a configured name to a Parser. An empty name means ParserAuto.
func ParseParser(name string) (Parser, error) {
	switch p := Parser(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return ParserAuto, nil
	case ParserAuto, ParserGofeed, ParserRSS:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownParser, name)
	}
}

const (
	userAgent    = "JobDigest/1.0"
	maxFeedBytes = 5 << 20
	companyField = "company"
)

// RSSSource retrieves and parses one RSS/Atom feed.
type RSSSource struct {
	URL    string
	client *http.Client
	parser *gofeed.Parser
	mode   Parser
}

type Option func(*RSSSource)

// WithParser overrides the default ParserAuto.
func WithParser(mode Parser) Option {
	return func(s *RSSSource) { s.mode = mode }
}

func NewRSSSource(url string, client *http.Client, opts ...Option) RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	s := RSSSource{
		URL:    url,
		client: client,
		parser: gofeed.NewParser(),
		mode:   ParserAuto,
	}
	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// Fetch downloads the feed and parses it into items. A malformed or unreachable
// feed is reported as an error; the caller decides whether it is fatal.
func (s RSSSource) Fetch(ctx context.Context) (model.Feed, error) {
	body, err := s.load(ctx)
	if err != nil {
		return model.Feed{}, err
	}

	switch s.mode {
	case ParserGofeed:
		return s.parseGofeed(body)
	case ParserRSS:
		return s.parseRSS(body)
	case ParserAuto, "":
		feed, err := s.parseGofeed(body)
		if err == nil {
			return feed, nil
		}

		fallback, fallbackErr := s.parseRSS(body)
		if fallbackErr != nil {
			return model.Feed{}, errors.Join(err, fallbackErr)
		}
		return fallback, nil
	default:
		return model.Feed{}, fmt.Errorf("%w: %q", ErrUnknownParser, s.mode)
	}
}

func (s RSSSource) parseGofeed(body []byte) (model.Feed, error) {
	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return model.Feed{}, fmt.Errorf("parse feed %s with gofeed: %w", s.URL, err)
	}
	return fromGofeed(feed), nil
}

func (s RSSSource) parseRSS(body []byte) (model.Feed, error) {
	feed, err := rss.Parse(body)
	if err != nil {
		return model.Feed{}, fmt.Errorf("parse feed %s with rss: %w", s.URL, err)
	}
	return fromSlyMarbo(feed), nil
}

func (s RSSSource) load(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", s.URL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %w %d", s.URL, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.URL, err)
	}

	return body, nil
}

func fromGofeed(feed *gofeed.Feed) model.Feed {
	out := model.Feed{Title: feed.Title}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		out.Items = append(out.Items, model.Item{
			Title:     item.Title,
			Summary:   summary,
			Link:      item.Link,
			Company:   company(item),
			Published: utc(item.PublishedParsed),
			Updated:   utc(item.UpdatedParsed),
		})
	}

	return out
}

func fromSlyMarbo(feed *rss.Feed) model.Feed {
	out := model.Feed{Title: feed.Title}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		summary := item.Summary
		if summary == "" {
			summary = item.Content
		}

		// Date may be set even when parsing failed
		var published *time.Time
		if item.DateValid {
			published = utc(&item.Date)
		}

		out.Items = append(out.Items, model.Item{
			Title:     item.Title,
			Summary:   summary,
			Link:      item.Link,
			Published: published,
		})
	}

	return out
}

// company looks for a plain <company> element first, then any namespaced one.
func company(item *gofeed.Item) string {
	if v := strings.TrimSpace(item.Custom[companyField]); v != "" {
		return v
	}

	return extensionValue(item.Extensions, companyField)
}

func extensionValue(extensions ext.Extensions, name string) string {
	for _, elements := range extensions {
		for _, e := range elements[name] {
			if v := strings.TrimSpace(e.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
