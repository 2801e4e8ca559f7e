// Package runner holds the runner-agnostic types exchanged between a test
// runner adapter and the selection and reconciliation core.
//
// A runner discovers Items, hands them to selection, executes the selected
// ones and reports one Report per item and phase.
package runner

import (
	"context"
	"time"
)

// Item is a discovered test.
type Item struct {
	// ID is the stable item identity, unique within a run.
	ID string
	// NodePath is the runner's path for the test, the input to identifier
	// normalization.
	NodePath string
}

// Phase is a stage of a test's lifecycle.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseCall     Phase = "call"
	PhaseTeardown Phase = "teardown"
)

// Outcome is the result of one phase.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Report describes the outcome of one phase of one item.
type Report struct {
	Phase    Phase
	Outcome  Outcome
	Duration time.Duration
	// Location is where the outcome was produced, for example "x_test.go:42".
	Location string
	// LongRepr is the full failure or skip text.
	LongRepr string
	// SkipReason is the reason given for a skip, if any.
	SkipReason string
}

// Reporter receives phase reports while tests run.
type Reporter interface {
	Report(ctx context.Context, item Item, rep Report)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, item Item, rep Report)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, item Item, rep Report) {
	f(ctx, item, rep)
}

// Hooks are notified of collection decisions.
type Hooks interface {
	Deselected(items []Item)
}

// Summary counts executed tests by final outcome.
type Summary struct {
	Passed  int
	Failed  int
	Skipped int
	// Elapsed is the wall time spent executing.
	Elapsed time.Duration
}

// Total returns the number of executed tests.
func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// Runner discovers and executes tests.
type Runner interface {
	Discover(ctx context.Context) ([]Item, error)
	Execute(ctx context.Context, items []Item, r Reporter) (Summary, error)
}
