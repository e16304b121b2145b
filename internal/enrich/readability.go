package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

var ErrNoContent = errors.New("page has no readable content")

const maxPageBytes = 2 << 20

// PageSummarizer extracts a summary from a posting page for entries whose
// feed item carries none.
type PageSummarizer struct {
	client *http.Client
}

func NewPageSummarizer(client *http.Client) *PageSummarizer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PageSummarizer{client: client}
}

func (p *PageSummarizer) Summary(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: status %d", link, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", link, err)
	}

	text := strings.TrimSpace(article.Excerpt)
	if text == "" {
		text = cleanText(article.TextContent)
	}
	if text == "" {
		return "", ErrNoContent
	}

	return text, nil
}

// readability leaves long runs of blank lines behind
var redundantNewLines = regexp.MustCompile(`\n{3,}`)

func cleanText(text string) string {
	return strings.TrimSpace(redundantNewLines.ReplaceAllString(text, "\n"))
}
