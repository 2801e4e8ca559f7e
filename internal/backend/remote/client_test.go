package remote_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polarsync/internal/backend"
	"polarsync/internal/backend/remote"
	"polarsync/internal/testing/mock"
)

const fixture = `
project: RHCF3
logged_in_user: jenkins
test_cases:
  - title: test_a
    work_item_id: RHCF3-1
    test_case_id: pkg.mod.test_a
  - title: test_b[p1]
    work_item_id: RHCF3-2
    test_case_id: pkg.mod.test_b
runs:
  - name: nightly
    records:
      - test_case_id: RHCF3-1
`

func startService(t *testing.T) (*mock.Server, *remote.Client) {
	t.Helper()
	f, err := mock.ParseFixture([]byte(fixture))
	require.NoError(t, err)
	srv, err := mock.NewServer(f)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := remote.Dial(ctx, remote.Config{
		Endpoint: ts.URL + "/mcp",
		Timeout:  5 * time.Second,
		Query:    remote.QueryOptions{Project: "RHCF3", Run: "nightly", CollectFailed: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return srv, c
}

func TestClient_QueryTestCases(t *testing.T) {
	srv, c := startService(t)

	cases, err := c.QueryTestCases(context.Background(), backend.Query{Pattern: "pkg.mod.*"})
	require.NoError(t, err)
	assert.Equal(t, []backend.TestCase{
		{Title: "test_a", RecordID: "RHCF3-1", ExternalID: "pkg.mod.test_a"},
		{Title: "test_b[p1]", RecordID: "RHCF3-2", ExternalID: "pkg.mod.test_b"},
	}, cases)

	require.Len(t, srv.Queries(), 1)
	assert.Contains(t, srv.Queries()[0], `TEST_RECORDS:("RHCF3/nightly","failed")`)
	assert.Contains(t, srv.Queries()[0], "AND pkg.mod.*)")

	cases, err = c.QueryTestCases(context.Background(), backend.Query{Pattern: "nothing.here"})
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestClient_FaultsAreTransient(t *testing.T) {
	srv, c := startService(t)
	srv.InjectFaults(remote.ToolQueryTestCases, 1)

	_, err := c.QueryTestCases(context.Background(), backend.Query{Pattern: "pkg.mod.*"})
	require.Error(t, err)
	assert.True(t, backend.IsFault(err))

	_, err = c.QueryTestCases(context.Background(), backend.Query{Pattern: "pkg.mod.*"})
	assert.NoError(t, err)
}

func TestClient_FetchRun(t *testing.T) {
	_, c := startService(t)

	run, err := c.FetchRun(context.Background(), "RHCF3", "nightly")
	require.NoError(t, err)
	assert.Equal(t, "jenkins", run.LoggedInUser)
	assert.True(t, run.Has("RHCF3-1"))
	assert.False(t, run.Has("RHCF3-2"))

	_, err = c.FetchRun(context.Background(), "RHCF3", "weekly")
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrRecordNotFound))
	assert.False(t, backend.IsFault(err))
}

func TestClient_WriteRecords(t *testing.T) {
	srv, c := startService(t)
	ctx := context.Background()
	executed := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	rec := backend.Record{TestCaseID: "RHCF3-1", Result: backend.ResultPassed, Executed: &executed, ExecutedBy: "jenkins", Duration: 2.5}
	err := c.AddRecord(ctx, "RHCF3", "nightly", rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrRecordExists)

	require.NoError(t, c.UpdateRecord(ctx, "RHCF3", "nightly", rec))
	got, ok := srv.Record("nightly", "RHCF3-1")
	require.True(t, ok)
	assert.Equal(t, backend.ResultPassed, got.Result)
	assert.Equal(t, 2.5, got.Duration)
	require.NotNil(t, got.Executed)
	assert.True(t, got.Executed.Equal(executed))

	err = c.UpdateRecord(ctx, "RHCF3", "nightly", backend.Record{TestCaseID: "RHCF3-2"})
	assert.ErrorIs(t, err, backend.ErrRecordNotFound)

	require.NoError(t, c.AddRecord(ctx, "RHCF3", "nightly", backend.Record{TestCaseID: "RHCF3-2", Result: backend.ResultBlocked}))
	assert.Len(t, srv.Records("nightly"), 2)
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ts := httptest.NewServer(nil)
	endpoint := ts.URL + "/mcp"
	ts.Close()

	_, err := remote.Dial(ctx, remote.Config{Endpoint: endpoint, Timeout: time.Second})
	require.Error(t, err)
	assert.True(t, backend.IsFault(err))
}
