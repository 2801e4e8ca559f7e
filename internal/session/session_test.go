package session

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"polarsync/internal/backend"
	"polarsync/internal/backend/sqlstore"
	"polarsync/internal/config"
	"polarsync/internal/retry"
	"polarsync/internal/runner"
	"polarsync/internal/testing/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
project: RHCF3
logged_in_user: jenkins
test_cases:
  - title: TestA
    work_item_id: RHCF3-1
    test_case_id: app.pkg.TestA
  - title: TestB
    work_item_id: RHCF3-2
    test_case_id: app.pkg.TestB
  - title: TestC
    work_item_id: RHCF3-3
    test_case_id: app.pkg.TestC
  - title: TestE[fast]
    work_item_id: RHCF3-5
    test_case_id: app.pkg.TestE
runs:
  - name: nightly
    records:
      - test_case_id: RHCF3-1
      - test_case_id: RHCF3-2
      - test_case_id: RHCF3-5
`

const pkgPath = "example.com/app/pkg"

func item(name string) runner.Item {
	id := pkgPath + "::" + name
	return runner.Item{ID: id, NodePath: id}
}

// scriptedRunner discovers a fixed item list and reports the configured
// call outcome for every executed item and its subtests.
type scriptedRunner struct {
	items    []runner.Item
	outcomes map[string]runner.Outcome
	subtests map[string][]runner.Item
	executed []runner.Item
}

func (r *scriptedRunner) Discover(ctx context.Context) ([]runner.Item, error) {
	return r.items, nil
}

func (r *scriptedRunner) Execute(ctx context.Context, items []runner.Item, rep runner.Reporter) (runner.Summary, error) {
	var sum runner.Summary
	for _, it := range items {
		r.executed = append(r.executed, it)
		for _, sub := range r.subtests[it.ID] {
			r.report(ctx, sub, rep)
		}
		switch r.report(ctx, it, rep) {
		case runner.OutcomePassed:
			sum.Passed++
		case runner.OutcomeFailed:
			sum.Failed++
		default:
			sum.Skipped++
		}
	}
	return sum, nil
}

func (r *scriptedRunner) report(ctx context.Context, it runner.Item, rep runner.Reporter) runner.Outcome {
	outcome := r.outcomes[it.ID]
	if outcome == "" {
		outcome = runner.OutcomePassed
	}
	rep.Report(ctx, it, runner.Report{Phase: runner.PhaseSetup, Outcome: runner.OutcomePassed})
	rep.Report(ctx, it, runner.Report{
		Phase:    runner.PhaseCall,
		Outcome:  outcome,
		Duration: 250 * time.Millisecond,
		Location: "pkg_test.go:10",
		LongRepr: "assertion failed",
	})
	rep.Report(ctx, it, runner.Report{Phase: runner.PhaseTeardown, Outcome: runner.OutcomePassed})
	return outcome
}

type recordingHooks struct {
	mu         sync.Mutex
	deselected []runner.Item
}

func (h *recordingHooks) Deselected(items []runner.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deselected = append(h.deselected, items...)
}

func fastRetries() Option {
	return WithRetryPolicies(retry.Lookup.WithSleep(retry.NoSleep), retry.Write.WithSleep(retry.NoSleep))
}

func startMock(t *testing.T) (*mock.Server, string) {
	t.Helper()
	f, err := mock.ParseFixture([]byte(fixture))
	require.NoError(t, err)
	srv, err := mock.NewServer(f)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL + "/mcp"
}

func remoteConfig(endpoint string) config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Project = "RHCF3"
	cfg.Run = "nightly"
	cfg.Remote.Endpoint = endpoint
	cfg.Remote.Timeout = 5 * time.Second
	cfg.Selection.BaseNamespace = "app"
	cfg.Record.All = true
	return cfg
}

func TestSession_RemoteExecute(t *testing.T) {
	srv, endpoint := startMock(t)
	ctx := context.Background()
	hooks := &recordingHooks{}

	s, err := Open(ctx, remoteConfig(endpoint), fastRetries(), WithHooks(hooks), WithClientVersion("test"))
	require.NoError(t, err)
	defer s.Close()

	assert.NotEmpty(t, s.ID)
	require.NotNil(t, s.Run())
	assert.Equal(t, "jenkins", s.Run().LoggedInUser)

	r := &scriptedRunner{
		items: []runner.Item{item("TestA"), item("TestB"), item("TestC"), item("TestD")},
		outcomes: map[string]runner.Outcome{
			item("TestB").ID: runner.OutcomeFailed,
		},
	}
	out, err := s.Execute(ctx, r)
	require.NoError(t, err)

	assert.Equal(t, []runner.Item{item("TestA"), item("TestB")}, out.Selection.Selected)
	assert.Equal(t, 2, out.Selection.Stats.Deselected)
	assert.Equal(t, 3, out.Selection.Stats.Resolved)
	assert.ElementsMatch(t, []runner.Item{item("TestC"), item("TestD")}, hooks.deselected)
	assert.Equal(t, 1, out.Tests.Passed)
	assert.Equal(t, 1, out.Tests.Failed)
	assert.Equal(t, int64(2), out.Records.TotalRecorded)

	a, ok := srv.Record("nightly", "RHCF3-1")
	require.True(t, ok)
	assert.Equal(t, backend.ResultPassed, a.Result)
	assert.Equal(t, "jenkins", a.ExecutedBy)
	assert.InDelta(t, 0.25, a.Duration, 1e-9)

	b, ok := srv.Record("nightly", "RHCF3-2")
	require.True(t, ok)
	assert.Equal(t, backend.ResultFailed, b.Result)
	assert.Contains(t, b.Comment, "assertion failed")

	_, ok = srv.Record("nightly", "RHCF3-3")
	assert.False(t, ok)
}

func TestSession_ParametrizedRecordsRunThroughParent(t *testing.T) {
	srv, endpoint := startMock(t)
	ctx := context.Background()

	s, err := Open(ctx, remoteConfig(endpoint), fastRetries())
	require.NoError(t, err)
	defer s.Close()

	parent := item("TestE")
	r := &scriptedRunner{
		items: []runner.Item{parent},
		subtests: map[string][]runner.Item{
			parent.ID: {item("TestE[fast]"), item("TestE[slow]")},
		},
	}
	out, err := s.Execute(ctx, r)
	require.NoError(t, err)

	assert.Equal(t, []runner.Item{parent}, out.Selection.Selected)
	assert.Equal(t, []runner.Item{parent}, r.executed)
	assert.Equal(t, int64(1), out.Records.TotalRecorded)
	assert.Equal(t, 1, srv.Calls("query_test_cases"))

	rec, ok := srv.Record("nightly", "RHCF3-5")
	require.True(t, ok)
	assert.Equal(t, backend.ResultPassed, rec.Result)
}

func TestSession_FetchRunRetried(t *testing.T) {
	srv, endpoint := startMock(t)
	srv.InjectFaults("fetch_test_run", 2)

	s, err := Open(context.Background(), remoteConfig(endpoint), fastRetries())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 3, srv.Calls("fetch_test_run"))
	assert.True(t, s.Run().Has("RHCF3-1"))
}

func TestSession_LookupExhaustionIsFatal(t *testing.T) {
	srv, endpoint := startMock(t)
	ctx := context.Background()

	s, err := Open(ctx, remoteConfig(endpoint), fastRetries())
	require.NoError(t, err)
	defer s.Close()

	srv.InjectFaults("query_test_cases", 10)
	r := &scriptedRunner{items: []runner.Item{item("TestA")}}
	_, err = s.Execute(ctx, r)
	require.Error(t, err)
	assert.True(t, retry.IsFatal(err))
	assert.Empty(t, r.executed)
}

func TestSession_WriteFaultsDropped(t *testing.T) {
	srv, endpoint := startMock(t)
	ctx := context.Background()

	s, err := Open(ctx, remoteConfig(endpoint), fastRetries())
	require.NoError(t, err)
	defer s.Close()

	srv.InjectFaults("add_test_record", 3)
	out, err := s.Execute(ctx, &scriptedRunner{items: []runner.Item{item("TestA")}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Tests.Passed)
	assert.Equal(t, int64(1), out.Records.TotalDropped)

	rec, ok := srv.Record("nightly", "RHCF3-1")
	require.True(t, ok)
	assert.Empty(t, rec.Result)
}

func TestOpen_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	cfg := remoteConfig("http://127.0.0.1:1/mcp")
	cfg.Run = ""
	_, err := Open(ctx, cfg)
	assert.True(t, config.IsConfigurationError(err))

	cfg = remoteConfig("http://127.0.0.1:1/mcp")
	cfg.Record.BlockerPatterns = []string{"BZ("}
	_, err = Open(ctx, cfg)
	assert.True(t, config.IsConfigurationError(err))

	cfg = remoteConfig("")
	cfg.Backend = config.BackendLocal
	cfg.Local.Path = filepath.Join(t.TempDir(), "missing.db")
	_, err = Open(ctx, cfg)
	assert.True(t, config.IsConfigurationError(err))
}

func TestOpen_UnreachableService(t *testing.T) {
	cfg := remoteConfig("http://127.0.0.1:1/mcp")
	cfg.Remote.Timeout = 2 * time.Second

	_, err := Open(context.Background(), cfg, fastRetries())
	require.Error(t, err)
	assert.True(t, backend.IsFault(err))
	assert.False(t, config.IsConfigurationError(err))
}

func TestSession_LocalExecute(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cases.db")

	seed, err := sqlstore.Open(ctx, path, sqlstore.Options{Create: true})
	require.NoError(t, err)
	ha, err := seed.Insert(ctx, "TestA", "app.pkg.TestA")
	require.NoError(t, err)
	hb, err := seed.Insert(ctx, "TestB", "app.pkg.TestB")
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	cfg := config.GetDefaultConfig()
	cfg.Backend = config.BackendLocal
	cfg.Local.Path = path
	cfg.Project = "RHCF3"
	cfg.Run = "local"
	cfg.Selection.BaseNamespace = "app"
	cfg.Record.All = true

	s, err := Open(ctx, cfg, fastRetries())
	require.NoError(t, err)
	assert.Nil(t, s.Run())

	r := &scriptedRunner{
		items:    []runner.Item{item("TestA"), item("TestB"), item("TestZ")},
		outcomes: map[string]runner.Outcome{item("TestB").ID: runner.OutcomeFailed},
	}
	out, err := s.Execute(ctx, r)
	require.NoError(t, err)
	assert.Len(t, out.Selection.Selected, 2)
	assert.Equal(t, 1, out.Selection.Stats.Deselected)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	check, err := sqlstore.Open(ctx, path, sqlstore.Options{})
	require.NoError(t, err)
	defer check.Close()

	rowA, err := check.Get(ctx, ha)
	require.NoError(t, err)
	assert.Equal(t, backend.ResultPassed, rowA.Verdict)

	rowB, err := check.Get(ctx, hb)
	require.NoError(t, err)
	assert.Equal(t, backend.ResultFailed, rowB.Verdict)
	assert.Equal(t, backend.ResultFailed, rowB.LastStatus)
}
