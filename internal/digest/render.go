package digest

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/kovalyov-valentin/job-digest/internal/model"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"
	NoMatchesNotice = "No new matches found in the selected feeds for your keywords."
)

// Message is a rendered digest ready for delivery.
type Message struct {
	Subject string
	HTML    string
	Digest  model.Digest
}

var bodyTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body>
<h2>Daily Job Matches</h2>
{{- if .Intro}}
<p>{{.Intro}}</p>
{{- end}}
{{- if .Matches}}
<ul>
{{- range .Matches}}
<li><b>{{.Title}}</b> &mdash; <i>{{.Source}}</i><br/>{{.Summary}}<br/>Published: {{.Published}}<br/>{{if .Link}}<a href="{{.Link}}">View job</a>{{end}}</li>
{{- end}}
</ul>
{{- else}}
<p>{{.NoMatches}}</p>
{{- end}}
<hr/><p>Generated at {{.GeneratedAt}} UTC</p>
</body>
</html>
`))

type bodyView struct {
	Subject     string
	Intro       string
	Matches     []model.JobMatch
	NoMatches   string
	GeneratedAt string
}

// Subject contains the match count and the run date.
func Subject(d model.Digest) string {
	return fmt.Sprintf("Job Matches — %d results — %s", len(d.Matches), d.GeneratedAt.UTC().Format(dateLayout))
}

// Render produces a self-contained HTML document. Values are escaped by html/template.
func Render(d model.Digest) (Message, error) {
	subject := Subject(d)

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, bodyView{
		Subject:     subject,
		Intro:       d.Intro,
		Matches:     d.Matches,
		NoMatches:   NoMatchesNotice,
		GeneratedAt: d.GeneratedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render digest: %w", err)
	}

	return Message{
		Subject: subject,
		HTML:    buf.String(),
		Digest:  d,
	}, nil
}
