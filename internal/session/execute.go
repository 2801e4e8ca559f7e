package session

import (
	"context"
	"fmt"

	"polarsync/internal/reconcile"
	"polarsync/internal/runner"
	"polarsync/internal/selection"
)

// Outcome summarizes a full discover, select, execute cycle.
type Outcome struct {
	Selection selection.Result
	Tests     runner.Summary
	Records   reconcile.MetricsSummary
}

// Execute discovers tests with r, selects those with a test case and runs
// them, recording every phase report. Nothing is run when the selection is
// empty.
func (s *Session) Execute(ctx context.Context, r runner.Runner) (Outcome, error) {
	items, err := r.Discover(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to discover tests: %w", err)
	}

	sel, err := s.Select(ctx, items)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Selection: sel}
	if len(sel.Selected) == 0 {
		out.Records = s.Metrics()
		return out, nil
	}

	out.Tests, err = r.Execute(ctx, sel.Selected, s)
	out.Records = s.Metrics()
	if err != nil {
		return out, fmt.Errorf("failed to execute tests: %w", err)
	}
	return out, nil
}
