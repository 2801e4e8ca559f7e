package formatting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type painter struct {
	color bool
}

func (p painter) paint(c text.Color, v interface{}) string {
	if !p.color {
		return fmt.Sprint(v)
	}
	return c.Sprint(v)
}

// createTable creates a new table with standard styling
func createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func writeTables(w io.Writer, r Report, opts Options) {
	p := painter{color: opts.Color}

	fmt.Fprintf(w, "%s %s %s\n",
		p.paint(text.FgHiBlue, "Test run"),
		p.paint(text.FgHiWhite, r.Project+"/"+r.Run),
		p.paint(text.FgHiBlack, "("+r.Session+")"))

	t := createTable(w)
	t.AppendHeader(table.Row{p.paint(text.FgHiCyan, "COLLECTION"), p.paint(text.FgHiCyan, "VALUE")})
	sel := r.Selection
	t.AppendRows([]table.Row{
		{"Items", sel.Items},
		{"Resolved", sel.Resolved},
		{"Selected", p.paint(text.FgGreen, len(sel.Selected))},
		{"Deselected", p.paint(deselectedColor(len(sel.Deselected)), len(sel.Deselected))},
		{"Queries", sel.Queries},
		{"Breadth level", sel.BreadthLevel},
		{"Elapsed", sel.Elapsed},
	})
	t.Render()

	if len(sel.Deselected) > 0 {
		writeDeselected(w, p, sel.Deselected, opts.Verbose)
	}

	if r.Tests != nil {
		t := createTable(w)
		t.AppendHeader(table.Row{
			p.paint(text.FgHiCyan, "PASSED"),
			p.paint(text.FgHiCyan, "FAILED"),
			p.paint(text.FgHiCyan, "SKIPPED"),
			p.paint(text.FgHiCyan, "ELAPSED"),
		})
		t.AppendRow(table.Row{
			p.paint(text.FgGreen, r.Tests.Passed),
			p.paint(failedColor(r.Tests.Failed), r.Tests.Failed),
			p.paint(text.FgYellow, r.Tests.Skipped),
			r.Tests.Elapsed,
		})
		t.Render()
	}

	if r.Records != nil {
		writeRecords(w, p, *r.Records)
	}
}

func writeDeselected(w io.Writer, p painter, ids []string, verbose bool) {
	shown := ids
	if !verbose && len(shown) > maxListedItems {
		shown = shown[:maxListedItems]
	}
	fmt.Fprintln(w, p.paint(text.FgYellow, "Deselected:"))
	for _, id := range shown {
		fmt.Fprintf(w, "  - %s\n", truncate(id, 100))
	}
	if rest := len(ids) - len(shown); rest > 0 {
		fmt.Fprintf(w, "  ... and %d more (use --verbose to list all)\n", rest)
	}
}

func writeRecords(w io.Writer, p painter, rv RecordsView) {
	t := createTable(w)
	t.AppendHeader(table.Row{
		p.paint(text.FgHiCyan, "RESULT"),
		p.paint(text.FgHiCyan, "RECORDED"),
		p.paint(text.FgHiCyan, "DROPPED"),
	})
	for _, row := range rv.PerResult {
		t.AppendRow(table.Row{row.Result, row.Recorded, p.paint(failedColor(int(row.Dropped)), row.Dropped)})
	}
	t.AppendFooter(table.Row{"Total", rv.Recorded, rv.Dropped})
	t.Render()

	var notes []string
	if rv.Conflicts > 0 {
		notes = append(notes, fmt.Sprintf("%d updated existing records", rv.Conflicts))
	}
	if rv.Ignored > 0 {
		notes = append(notes, fmt.Sprintf("%d status-only outcomes not sent", rv.Ignored))
	}
	if rv.Dropped > 0 {
		notes = append(notes, p.paint(text.FgRed, fmt.Sprintf("%.0f%% of writes dropped", rv.DropRate*100)))
	}
	if len(notes) > 0 {
		fmt.Fprintln(w, strings.Join(notes, "; "))
	}
}

func deselectedColor(n int) text.Color {
	if n > 0 {
		return text.FgYellow
	}
	return text.FgGreen
}

func failedColor(n int) text.Color {
	if n > 0 {
		return text.FgRed
	}
	return text.FgGreen
}
