// Package formatting renders selection and reconciliation summaries for
// the command line as tables, JSON or YAML.
package formatting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"polarsync/internal/reconcile"
	"polarsync/internal/runner"
	"polarsync/internal/selection"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected table, json, yaml)", s)
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	// Color enables ANSI colors in table output.
	Color bool
	// Verbose lists every deselected item instead of a sample.
	Verbose bool
}

// maxListedItems bounds the deselected list in non-verbose table output.
const maxListedItems = 10

// Report is the printable summary of one invocation.
type Report struct {
	Session   string        `json:"session" yaml:"session"`
	Project   string        `json:"project" yaml:"project"`
	Run       string        `json:"run" yaml:"run"`
	Selection SelectionView `json:"selection" yaml:"selection"`
	Tests     *TestsView    `json:"tests,omitempty" yaml:"tests,omitempty"`
	Records   *RecordsView  `json:"records,omitempty" yaml:"records,omitempty"`
}

// SelectionView summarizes collection.
type SelectionView struct {
	Items        int      `json:"items" yaml:"items"`
	Resolved     int      `json:"resolved" yaml:"resolved"`
	Selected     []string `json:"selected" yaml:"selected"`
	Deselected   []string `json:"deselected" yaml:"deselected"`
	Queries      int      `json:"queries" yaml:"queries"`
	BreadthLevel int      `json:"breadth_level" yaml:"breadth_level"`
	Elapsed      string   `json:"elapsed" yaml:"elapsed"`
}

// TestsView summarizes execution.
type TestsView struct {
	Passed  int    `json:"passed" yaml:"passed"`
	Failed  int    `json:"failed" yaml:"failed"`
	Skipped int    `json:"skipped" yaml:"skipped"`
	Elapsed string `json:"elapsed" yaml:"elapsed"`
}

// RecordsView summarizes reconciliation.
type RecordsView struct {
	Recorded  int64       `json:"recorded" yaml:"recorded"`
	Dropped   int64       `json:"dropped" yaml:"dropped"`
	Conflicts int64       `json:"conflicts" yaml:"conflicts"`
	Ignored   int64       `json:"ignored" yaml:"ignored"`
	DropRate  float64     `json:"drop_rate" yaml:"drop_rate"`
	PerResult []ResultRow `json:"per_result,omitempty" yaml:"per_result,omitempty"`
}

// ResultRow counts writes of one result.
type ResultRow struct {
	Result   string `json:"result" yaml:"result"`
	Recorded int64  `json:"recorded" yaml:"recorded"`
	Dropped  int64  `json:"dropped" yaml:"dropped"`
}

// NewReport builds a report from a selection. Use WithTests and WithRecords
// to add execution results.
func NewReport(sessionID, project, run string, sel selection.Result) Report {
	return Report{
		Session: sessionID,
		Project: project,
		Run:     run,
		Selection: SelectionView{
			Items:        sel.Stats.Items,
			Resolved:     sel.Stats.Resolved,
			Selected:     itemIDs(sel.Selected),
			Deselected:   itemIDs(sel.Deselected),
			Queries:      sel.Stats.Queries,
			BreadthLevel: sel.Stats.Level,
			Elapsed:      roundDuration(sel.Stats.Elapsed),
		},
	}
}

// WithTests adds the execution summary.
func (r Report) WithTests(s runner.Summary) Report {
	r.Tests = &TestsView{
		Passed:  s.Passed,
		Failed:  s.Failed,
		Skipped: s.Skipped,
		Elapsed: roundDuration(s.Elapsed),
	}
	return r
}

// WithRecords adds the reconciliation summary.
func (r Report) WithRecords(m reconcile.MetricsSummary) Report {
	v := &RecordsView{
		Recorded:  m.TotalRecorded,
		Dropped:   m.TotalDropped,
		Conflicts: m.TotalConflicts,
		Ignored:   m.TotalIgnored,
		DropRate:  m.DropRate,
	}
	for _, pr := range m.PerResult {
		v.PerResult = append(v.PerResult, ResultRow{
			Result:   string(pr.Result),
			Recorded: pr.Recorded,
			Dropped:  pr.Dropped,
		})
	}
	r.Records = v
	return r
}

// Write renders the report in the configured format.
func Write(w io.Writer, r Report, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	default:
		writeTables(w, r, opts)
		return nil
	}
}

func itemIDs(items []runner.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func roundDuration(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}
