package gotest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"polarsync/internal/runner"
	"polarsync/pkg/logging"
)

// Replay is a runner over a saved `go test -json` log. Discover returns the
// top-level tests that ran; Execute feeds the recorded events of the
// selected tests through the same phase tracking as a live run.
type Replay struct {
	events []Event
}

var _ runner.Runner = (*Replay)(nil)

// NewReplay reads a complete event log from r.
func NewReplay(r io.Reader) (*Replay, error) {
	var events []Event
	malformed, err := Decode(r, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read test log: %w", err)
	}
	if malformed > 0 {
		logging.Debug("GoTest", "Skipped %d non-JSON lines in test log", malformed)
	}
	return &Replay{events: events}, nil
}

// Discover lists the top-level tests started in the log, in order.
func (p *Replay) Discover(ctx context.Context) ([]runner.Item, error) {
	var items []runner.Item
	seen := make(map[string]bool)
	for _, e := range p.events {
		if e.Action != ActionRun || e.Test == "" {
			continue
		}
		name := topLevel(e.Test)
		if !listedTest.MatchString(name) {
			continue
		}
		item := ItemFor(e.Package, name)
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	logging.Debug("GoTest", "Found %d tests in test log", len(items))
	return items, nil
}

// Execute replays the events of items and their subtests.
func (p *Replay) Execute(ctx context.Context, items []runner.Item, r runner.Reporter) (runner.Summary, error) {
	start := time.Now()
	selected := make(map[testKey]bool, len(items))
	for _, item := range items {
		pkg, test := SplitID(item.ID)
		selected[testKey{pkg: pkg, test: test}] = true
	}

	t := newTracker(func(item runner.Item, rep runner.Report) {
		r.Report(ctx, item, rep)
	})
	for _, e := range p.events {
		if err := ctx.Err(); err != nil {
			return t.summary, err
		}
		if e.Test != "" && !selected[testKey{pkg: e.Package, test: topLevel(e.Test)}] {
			continue
		}
		t.handle(e)
	}
	t.summary.Elapsed = time.Since(start)
	return t.summary, nil
}

func topLevel(test string) string {
	name, _, _ := strings.Cut(test, "/")
	return name
}
