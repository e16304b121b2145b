package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kovalyov-valentin/job-digest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC)

func TestAggregate_DedupeFirstSeenWins(t *testing.T) {
	feedA := []model.JobMatch{
		{Title: "Junior Analyst", Link: "https://x/1", Source: "Feed A"},
		{Title: "Intern", Link: "https://x/2", Source: "Feed A"},
	}
	feedB := []model.JobMatch{
		{Title: "Junior Analyst (repost)", Link: "https://x/1", Source: "Feed B"},
		{Title: "Associate", Link: "https://x/3", Source: "Feed B"},
	}

	got := Aggregate([][]model.JobMatch{feedA, feedB}, generatedAt)

	want := []model.JobMatch{feedA[0], feedA[1], feedB[1]}
	if diff := cmp.Diff(want, got.Matches); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, generatedAt, got.GeneratedAt)
}

func TestAggregate_EmptyLinksAreKept(t *testing.T) {
	feed := []model.JobMatch{
		{Title: "No link one"},
		{Title: "No link two"},
		{Title: "Linked", Link: "https://x/1"},
		{Title: "Linked again", Link: "https://x/1"},
	}

	got := Aggregate([][]model.JobMatch{feed}, generatedAt)

	require.Len(t, got.Matches, 3)
	assert.Equal(t, "No link two", got.Matches[1].Title)
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil, generatedAt)
	assert.Empty(t, got.Matches)
}

func TestRender_WithMatches(t *testing.T) {
	d := model.Digest{
		GeneratedAt: generatedAt,
		Intro:       "Two fresh roles this week.",
		Matches: []model.JobMatch{
			{
				Title:     "Junior <Data> Analyst",
				Link:      "https://x/1?a=1&b=2",
				Summary:   "SQL & dashboards",
				Published: "2026-10-18T12:00:00Z",
				Source:    "Startup Jobs",
			},
			{
				Title:     "Intern",
				Link:      "https://x/2",
				Published: model.UnknownPublished,
				Source:    "https://feed.example.com/rss",
			},
		},
	}

	msg, err := Render(d)
	require.NoError(t, err)

	assert.Equal(t, "Job Matches — 2 results — 2026-10-19", msg.Subject)
	assert.Equal(t, 2, strings.Count(msg.HTML, "<li>"))
	assert.Contains(t, msg.HTML, "Junior &lt;Data&gt; Analyst")
	assert.Contains(t, msg.HTML, "SQL &amp; dashboards")
	assert.Contains(t, msg.HTML, `href="https://x/1?a=1&amp;b=2"`)
	assert.Contains(t, msg.HTML, "Published: Unknown")
	assert.Contains(t, msg.HTML, "<p>Two fresh roles this week.</p>")
	assert.Contains(t, msg.HTML, "Generated at 2026-10-19T07:30:00 UTC")
	assert.NotContains(t, msg.HTML, NoMatchesNotice)
	assert.NotContains(t, msg.HTML, "<script")
	assert.NotContains(t, msg.HTML, "<link")
}

func TestRender_Empty(t *testing.T) {
	msg, err := Render(model.Digest{GeneratedAt: generatedAt})
	require.NoError(t, err)

	assert.Equal(t, "Job Matches — 0 results — 2026-10-19", msg.Subject)
	assert.Contains(t, msg.HTML, NoMatchesNotice)
	assert.Zero(t, strings.Count(msg.HTML, "<li>"))
	assert.Contains(t, msg.HTML, "Generated at 2026-10-19T07:30:00 UTC")
}

func TestRender_UnsafeLink(t *testing.T) {
	msg, err := Render(model.Digest{
		GeneratedAt: generatedAt,
		Matches:     []model.JobMatch{{Title: "Bad", Link: "javascript:alert(1)"}},
	})
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "javascript:")
}
