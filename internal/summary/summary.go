// Package summary writes an optional short introduction for the digest.
package summary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kovalyov-valentin/job-digest/internal/model"
)

var ErrEmptyResponse = errors.New("summarizer returned no text")

// maxPromptMatches keeps prompts small on busy days.
const maxPromptMatches = 50

// PromptText lists the matches as plain lines for a summarizer prompt.
func PromptText(matches []model.JobMatch) string {
	var b strings.Builder
	for i, m := range matches {
		if i == maxPromptMatches {
			fmt.Fprintf(&b, "...and %d more postings\n", len(matches)-i)
			break
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", m.Title, m.Source, m.Summary)
	}
	return b.String()
}
