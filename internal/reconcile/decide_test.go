package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polarsync/internal/backend"
	"polarsync/internal/runner"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testPolicy(t *testing.T, mutate func(*Policy)) Policy {
	t.Helper()
	blockers, err := CompilePatterns(DefaultBlockerPatterns)
	require.NoError(t, err)
	p := Policy{Blockers: blockers, Now: func() time.Time { return fixedNow }}
	if mutate != nil {
		mutate(&p)
	}
	return p
}

func TestDecide(t *testing.T) {
	recordSkipped := func(p *Policy) { p.RecordSkipped = true }
	recordAll := func(p *Policy) { p.RecordAll = true }
	recordNone := func(p *Policy) { p.RecordNone = true; p.RecordAll = true }

	tests := []struct {
		name        string
		mutate      func(*Policy)
		rep         runner.Report
		wantOK      bool
		wantResult  backend.Result
		wantComment string
		wantStatus  bool
	}{
		{
			name:   "record none wins",
			mutate: recordNone,
			rep:    runner.Report{Phase: runner.PhaseCall, Outcome: runner.OutcomePassed},
		},
		{
			name:       "call passed",
			rep:        runner.Report{Phase: runner.PhaseCall, Outcome: runner.OutcomePassed, Duration: 2 * time.Second},
			wantOK:     true,
			wantResult: backend.ResultPassed,
		},
		{
			name: "call failed without record all",
			rep:  runner.Report{Phase: runner.PhaseCall, Outcome: runner.OutcomeFailed, Location: "x_test.go:3"},
		},
		{
			name:        "call failed with record all",
			mutate:      recordAll,
			rep:         runner.Report{Phase: runner.PhaseCall, Outcome: runner.OutcomeFailed, Location: "x_test.go:3", LongRepr: "boom"},
			wantOK:      true,
			wantResult:  backend.ResultFailed,
			wantComment: "x_test.go:3:call\nboom",
		},
		{
			name:        "setup failed is status only",
			rep:         runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomeFailed, Location: "conftest", LongRepr: "fixture error"},
			wantOK:      true,
			wantResult:  backend.ResultError,
			wantComment: "conftest:setup\nfixture error",
			wantStatus:  true,
		},
		{
			name: "setup skipped not recorded by default",
			rep:  runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomeSkipped, LongRepr: "BZ 12345"},
		},
		{
			name:        "setup skipped with blocker",
			mutate:      recordSkipped,
			rep:         runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomeSkipped, LongRepr: "Skipped: BZ 12345 is open\nmore"},
			wantOK:      true,
			wantResult:  backend.ResultBlocked,
			wantComment: "Skipped: BZ 12345 is open",
		},
		{
			name:        "setup skipped with explicit reason",
			mutate:      recordAll,
			rep:         runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomeSkipped, SkipReason: " needs a database "},
			wantOK:      true,
			wantResult:  backend.ResultSkipped,
			wantComment: "needs a database",
		},
		{
			name:   "setup skipped without reason",
			mutate: recordAll,
			rep:    runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomeSkipped, LongRepr: "skipped"},
		},
		{
			name: "setup passed",
			rep:  runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomePassed},
		},
		{
			name:   "teardown failed",
			mutate: recordAll,
			rep:    runner.Report{Phase: runner.PhaseTeardown, Outcome: runner.OutcomeFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ok := Decide(testPolicy(t, tt.mutate), tt.rep)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantResult, o.Result)
			assert.Equal(t, tt.wantComment, o.Comment)
			assert.Equal(t, tt.wantStatus, o.StatusOnly)
		})
	}
}

func TestDecide_CallStampsExecution(t *testing.T) {
	o, ok := Decide(testPolicy(t, nil), runner.Report{Phase: runner.PhaseCall, Outcome: runner.OutcomePassed, Duration: 1500 * time.Millisecond})
	require.True(t, ok)
	require.NotNil(t, o.ExecutedAt)
	require.NotNil(t, o.Duration)
	assert.True(t, o.ExecutedAt.Equal(fixedNow))
	assert.InDelta(t, 1.5, *o.Duration, 1e-9)
}

func TestDecide_SkipReasonMarkers(t *testing.T) {
	markers, err := CompilePatterns([]string{`^reason:`})
	require.NoError(t, err)
	p := testPolicy(t, func(p *Policy) {
		p.RecordSkipped = true
		p.SkipReasons = markers
	})

	_, ok := Decide(p, runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomeSkipped, SkipReason: "flaky"})
	assert.False(t, ok)

	o, ok := Decide(p, runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomeSkipped, SkipReason: "reason: no network"})
	require.True(t, ok)
	assert.Equal(t, backend.ResultSkipped, o.Result)
}

func TestCompilePatterns_Invalid(t *testing.T) {
	_, err := CompilePatterns([]string{"ok", "(unclosed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(unclosed")
}
