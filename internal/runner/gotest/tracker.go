package gotest

import (
	"regexp"
	"strings"
	"time"

	"polarsync/internal/runner"
	"polarsync/pkg/logging"
)

var locationPattern = regexp.MustCompile(`^\s*([\w.\-/]+\.go:\d+): ?(.*)$`)

type testKey struct {
	pkg, test string
}

// tracker buffers test output until a test finishes and then emits its
// phase reports.
type tracker struct {
	emit    func(item runner.Item, rep runner.Report)
	output  map[testKey][]string
	tests   map[string]int
	summary runner.Summary
}

func newTracker(emit func(runner.Item, runner.Report)) *tracker {
	return &tracker{
		emit:   emit,
		output: make(map[testKey][]string),
		tests:  make(map[string]int),
	}
}

func (t *tracker) handle(e Event) {
	if e.Test == "" {
		t.handlePackage(e)
		return
	}

	key := testKey{e.Package, e.Test}
	switch e.Action {
	case ActionOutput:
		line := strings.TrimRight(e.Output, "\n")
		if keepLine(line) {
			t.output[key] = append(t.output[key], line)
		}
		return
	case ActionPass, ActionFail, ActionSkip:
	default:
		return
	}

	lines := t.output[key]
	delete(t.output, key)
	t.tests[e.Package]++

	item := ItemFor(e.Package, e.Test)
	elapsed := time.Duration(e.Elapsed * float64(time.Second))
	location, message := firstLocation(lines)
	if location == "" {
		location = item.ID
	}
	longRepr := joinOutput(lines)

	switch e.Action {
	case ActionPass:
		t.summary.Passed++
		t.emit(item, runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomePassed})
		t.emit(item, runner.Report{Phase: runner.PhaseCall, Outcome: runner.OutcomePassed, Duration: elapsed, Location: location})
	case ActionFail:
		t.summary.Failed++
		t.emit(item, runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomePassed})
		t.emit(item, runner.Report{
			Phase:    runner.PhaseCall,
			Outcome:  runner.OutcomeFailed,
			Duration: elapsed,
			Location: location,
			LongRepr: longRepr,
		})
	case ActionSkip:
		t.summary.Skipped++
		t.emit(item, runner.Report{
			Phase:      runner.PhaseSetup,
			Outcome:    runner.OutcomeSkipped,
			Duration:   elapsed,
			Location:   location,
			LongRepr:   longRepr,
			SkipReason: skipReason(lines, message),
		})
	}
	t.emit(item, runner.Report{Phase: runner.PhaseTeardown, Outcome: runner.OutcomePassed})
}

func (t *tracker) handlePackage(e Event) {
	key := testKey{pkg: e.Package}
	switch e.Action {
	case ActionOutput:
		line := strings.TrimRight(e.Output, "\n")
		if keepLine(line) {
			t.output[key] = append(t.output[key], line)
		}
	case ActionFail:
		if t.tests[e.Package] == 0 {
			logging.Warn("GoTest", "Package %s failed without running tests:\n%s", e.Package, joinOutput(t.output[key]))
		}
		delete(t.output, key)
	case ActionPass, ActionSkip:
		delete(t.output, key)
	}
}

// keepLine drops test2json framing lines.
func keepLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	return !strings.HasPrefix(trimmed, "=== ") && !strings.HasPrefix(trimmed, "--- ")
}

func firstLocation(lines []string) (string, string) {
	for _, l := range lines {
		if m := locationPattern.FindStringSubmatch(l); m != nil {
			return m[1], m[2]
		}
	}
	return "", ""
}

// skipReason returns the message of the last located log line, which is
// where t.Skip writes its arguments.
func skipReason(lines []string, fallback string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if m := locationPattern.FindStringSubmatch(lines[i]); m != nil {
			return strings.TrimSpace(m[2])
		}
	}
	return strings.TrimSpace(fallback)
}

func joinOutput(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimPrefix(strings.TrimPrefix(l, "    "), "\t")
	}
	return strings.Join(out, "\n")
}
