package bugupdate

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"

	"go.skia.org/alertgroups/alertgroup/go/revision"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/skerr"
)

// Names of the templates that Render accepts.
const (
	NewBugTitle      = "new_bug_title"
	NewBug           = "new_bug"
	Update           = "update"
	Reopen           = "reopen"
	Recovered        = "recovered"
	MergedInto       = "merged_into"
	SandwichStarted  = "sandwich_started"
	SandwichRepro    = "sandwich_repro"
	SandwichNoRepro  = "sandwich_no_repro"
	SandwichFailed   = "sandwich_failed"
	BisectStarted    = "bisect_started"
	BisectFailed     = "bisect_failed"
	AssignedToAuthor = "assigned"
)

// Data is the input to every template.
type Data struct {
	Group        *types.AlertGroup
	Regressions  []*types.Anomaly
	RevisionInfo []revision.RevisionInfo

	// GroupURL links to the group in the UI.
	GroupURL string

	// JobURL links to the bisection job.
	JobURL string

	// Author of the culprit commit.
	Author string

	// CanonicalBug is the bug a duplicate group was merged into.
	CanonicalBug *types.BugReference

	// Error is a human readable description of a failure.
	Error string
}

func percentChange(a *types.Anomaly) string {
	rel := a.RelativeDelta()
	if math.IsInf(rel, 1) {
		return "zero-to-nonzero"
	}
	return fmt.Sprintf("%.1f%%", rel*100)
}

func changeKind(a *types.Anomaly) string {
	if a.IsImprovement {
		return "improvement"
	}
	return "regression"
}

var funcs = template.FuncMap{
	"pct":  percentChange,
	"kind": changeKind,
	"join": strings.Join,
}

const regressionList = `{{define "regressions"}}{{range .Regressions}}
  - {{pct .}} {{kind .}} in {{.TestPath}} at {{.StartRevision}}:{{.EndRevision}}{{end}}{{end}}`

const revisionList = `{{define "revisions"}}{{range .RevisionInfo}}
{{.Name}}: {{.URL}}{{end}}{{end}}`

var sources = map[string]string{
	NewBugTitle: `{{with index .Regressions 0}}[{{pct .}}] {{kind .}} in {{.BenchmarkName}}{{end}} at {{.Group.Revision.Start}}:{{.Group.Revision.End}}`,

	NewBug: `Chromeperf detected {{len .Regressions}} regression(s) in {{.Group.Name}}.
{{template "regressions" .}}
{{template "revisions" .}}

All graphs for this bug:
  {{.GroupURL}}`,

	Update: `{{len .Regressions}} new regression(s) were added to this alert group.
{{template "regressions" .}}

All graphs for this bug:
  {{.GroupURL}}`,

	Reopen: `This bug was closed automatically, but new regressions were found, so it was reopened.
{{template "regressions" .}}`,

	Recovered: `All regressions for this issue have been marked recovered; closing.`,

	MergedInto: `Alert group {{.Group.ID}} was merged into this bug.
{{template "regressions" .}}`,

	SandwichStarted: `Started verifying the regression before bisecting it.
{{template "regressions" .}}`,

	SandwichRepro: `The regression was reproduced by verification. Bisection will start shortly.
{{template "regressions" .}}`,

	SandwichNoRepro: `The regression could not be reproduced by verification; closing.
{{template "regressions" .}}`,

	SandwichFailed: `Verification of the regression did not complete{{if .Error}} ({{.Error}}){{end}}. Bisecting anyway.`,

	BisectStarted: `Started a bisection job to find the culprit:
  {{.JobURL}}`,

	BisectFailed: `Bisection could not be started: {{.Error}}`,

	AssignedToAuthor: `Assigning to {{.Author}} because this is the only CL in range.`,
}

var templates = func() map[string]*template.Template {
	ret := make(map[string]*template.Template, len(sources))
	for name, src := range sources {
		t := template.New(name).Funcs(funcs)
		template.Must(t.Parse(regressionList))
		template.Must(t.Parse(revisionList))
		ret[name] = template.Must(t.Parse(src))
	}
	return ret
}()

// Render expands the named template.
func Render(name string, data *Data) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", skerr.Fmt("Unknown template %q", name)
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", skerr.Wrapf(err, "rendering %s", name)
	}
	return b.String(), nil
}
