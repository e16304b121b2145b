package digest

import (
	"time"

	"github.com/kovalyov-valentin/job-digest/internal/model"
	"github.com/tomakado/containers/set"
)

// Aggregate merges per-feed matches in feed order. A match whose link was
// already accepted is dropped, so the first occurrence wins. Matches without
// a link cannot be compared and are always kept.
func Aggregate(perFeed [][]model.JobMatch, generatedAt time.Time) model.Digest {
	seen := set.New[string]()
	d := model.Digest{GeneratedAt: generatedAt.UTC()}

	for _, matches := range perFeed {
		for _, m := range matches {
			if m.Link != "" {
				if seen.Contains(m.Link) {
					continue
				}
				seen.Add(m.Link)
			}

			d.Matches = append(d.Matches, m)
		}
	}

	return d
}
