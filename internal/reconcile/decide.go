package reconcile

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"polarsync/internal/backend"
	"polarsync/internal/runner"
)

// DefaultBlockerPatterns recognize skips caused by a tracked bug.
var DefaultBlockerPatterns = []string{
	`\bBZ\s*#?\d+`,
	`(?i)\bblocked by\b`,
	`(?i)\bblocker\b`,
}

// Policy decides which phase reports are recorded and how.
type Policy struct {
	// RecordNone disables recording entirely.
	RecordNone bool
	// RecordSkipped records skips with a recognized reason.
	RecordSkipped bool
	// RecordAll records everything RecordSkipped does plus failures.
	RecordAll bool
	// Blockers match skip text naming a blocking issue; a match records
	// the test as blocked.
	Blockers []*regexp.Regexp
	// SkipReasons restrict which declared skip reasons count as explicit.
	// Empty accepts any non-empty reason.
	SkipReasons []*regexp.Regexp
	// Now stamps execution times. Nil uses time.Now.
	Now func() time.Time
}

// CompilePatterns compiles regular expressions, naming the offending
// pattern on error.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Decide maps a phase report to the record to write. The boolean is false
// when nothing should be written.
func Decide(p Policy, rep runner.Report) (backend.OutcomeRecord, bool) {
	if p.RecordNone {
		return backend.OutcomeRecord{}, false
	}

	switch rep.Phase {
	case runner.PhaseSetup:
		return decideSetup(p, rep)
	case runner.PhaseCall:
		return decideCall(p, rep)
	}
	return backend.OutcomeRecord{}, false
}

func decideSetup(p Policy, rep runner.Report) (backend.OutcomeRecord, bool) {
	switch rep.Outcome {
	case runner.OutcomeFailed:
		return backend.OutcomeRecord{
			Result:     backend.ResultError,
			Comment:    trace(rep),
			StatusOnly: true,
		}, true
	case runner.OutcomeSkipped:
		if !p.RecordSkipped && !p.RecordAll {
			return backend.OutcomeRecord{}, false
		}
		if line, ok := blockerLine(p.Blockers, rep); ok {
			return backend.OutcomeRecord{Result: backend.ResultBlocked, Comment: line}, true
		}
		if reason, ok := explicitReason(p.SkipReasons, rep.SkipReason); ok {
			return backend.OutcomeRecord{Result: backend.ResultSkipped, Comment: reason}, true
		}
	}
	return backend.OutcomeRecord{}, false
}

func decideCall(p Policy, rep runner.Report) (backend.OutcomeRecord, bool) {
	o := backend.OutcomeRecord{}
	switch rep.Outcome {
	case runner.OutcomePassed:
		o.Result = backend.ResultPassed
	case runner.OutcomeFailed:
		if !p.RecordAll {
			return o, false
		}
		o.Result = backend.ResultFailed
		o.Comment = trace(rep)
	case runner.OutcomeSkipped:
		if !p.RecordAll {
			return o, false
		}
		o.Result = backend.ResultSkipped
		o.Comment = trace(rep)
	default:
		return o, false
	}

	executed := p.now()
	duration := rep.Duration.Seconds()
	o.ExecutedAt = &executed
	o.Duration = &duration
	return o, true
}

func trace(rep runner.Report) string {
	return fmt.Sprintf("%s:%s\n%s", rep.Location, rep.Phase, rep.LongRepr)
}

// blockerLine returns the first line of the skip text matching a blocker.
func blockerLine(blockers []*regexp.Regexp, rep runner.Report) (string, bool) {
	if len(blockers) == 0 {
		return "", false
	}
	text := rep.SkipReason
	if rep.LongRepr != "" {
		text += "\n" + rep.LongRepr
	}
	for _, line := range strings.Split(text, "\n") {
		for _, re := range blockers {
			if re.MatchString(line) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

func explicitReason(markers []*regexp.Regexp, reason string) (string, bool) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", false
	}
	if len(markers) == 0 {
		return reason, true
	}
	for _, re := range markers {
		if re.MatchString(reason) {
			return reason, true
		}
	}
	return "", false
}
