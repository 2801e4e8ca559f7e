package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"polarsync/internal/backend"
	"polarsync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts Options) *Store {
	t.Helper()
	opts.Create = true
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "cases.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insert(t *testing.T, s *Store, title, externalID string) backend.Handle {
	t.Helper()
	h, err := s.Insert(context.Background(), title, externalID)
	require.NoError(t, err)
	return h
}

func externalIDs(cases []backend.TestCase) []string {
	ids := make([]string, 0, len(cases))
	for _, tc := range cases {
		ids = append(ids, tc.ExternalID)
	}
	return ids
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(ctx, filepath.Join(dir, "absent.db"), Options{})
		require.Error(t, err)
		assert.True(t, config.IsConfigurationError(err))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Open(ctx, "", Options{})
		assert.True(t, config.IsConfigurationError(err))
	})

	t.Run("missing columns", func(t *testing.T) {
		path := filepath.Join(dir, "partial.db")
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec(`CREATE TABLE testcases (id INTEGER PRIMARY KEY, title TEXT, external_id TEXT, comment TEXT)`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		_, err = Open(ctx, path, Options{})
		var ce config.ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, config.ErrorTypeSchema, ce.ErrorType)
		assert.Contains(t, ce.Message, "last_status, time, verdict")
	})
}

func TestOpen_ExistingDatabase(t *testing.T) {
	s := newStore(t, Options{})
	h := insert(t, s, "test_a", "pkg.mod.test_a")
	path := s.path
	require.NoError(t, s.Close())

	reopened, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	row, err := reopened.Get(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "pkg.mod.test_a", row.ExternalID)
}

func TestQueryTestCases(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Options{})

	insert(t, s, "test_a", "pkg.mod.test_a")
	insert(t, s, "test_b[1]", "pkg.mod.test_b")
	insert(t, s, "test_c", "pkg.other.test_c")
	insert(t, s, "test_d", "pkg_mod.x.test_d")
	insert(t, s, "test_e", "PKG.MOD.test_e")
	done := insert(t, s, "test_f", "pkg.mod.test_f")
	require.NoError(t, s.UpdateOutcome(ctx, done, backend.OutcomeRecord{Result: backend.ResultPassed}))

	tests := []struct {
		pattern string
		want    []string
	}{
		{"pkg.mod.test_a", []string{"pkg.mod.test_a"}},
		{"pkg.mod.*", []string{"pkg.mod.test_a", "pkg.mod.test_b"}},
		{"pkg.*", []string{"pkg.mod.test_a", "pkg.mod.test_b", "pkg.other.test_c"}},
		{"pkg.mod.test_f", nil},
		{"pkg.mod.nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			cases, err := s.QueryTestCases(ctx, backend.Query{Pattern: tt.pattern})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, externalIDs(cases))
		})
	}

	cases, err := s.QueryTestCases(ctx, backend.Query{Pattern: "pkg.mod.test_b"})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "test_b[1]", cases[0].Title)
	assert.NotEmpty(t, cases[0].RecordID)
}

func TestQueryTestCases_SkipExecuted(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Options{SkipExecuted: true})

	fresh := insert(t, s, "test_a", "pkg.mod.test_a")
	ran := insert(t, s, "test_b", "pkg.mod.test_b")
	require.NoError(t, s.UpdateOutcome(ctx, ran, backend.OutcomeRecord{Result: backend.ResultError, StatusOnly: true}))

	cases, err := s.QueryTestCases(ctx, backend.Query{Pattern: "pkg.mod.*"})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, fresh, cases[0].RecordID)
}

func TestUpdateOutcome_FirstVerdictWins(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Options{})
	h := insert(t, s, "test_a", "pkg.mod.test_a")

	first := 1.5
	require.NoError(t, s.UpdateOutcome(ctx, h, backend.OutcomeRecord{
		Result: backend.ResultPassed, Comment: "A", Duration: &first,
	}))
	second := 2.25
	require.NoError(t, s.UpdateOutcome(ctx, h, backend.OutcomeRecord{
		Result: backend.ResultFailed, Comment: "B", Duration: &second,
	}))

	row, err := s.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, backend.ResultPassed, row.Verdict)
	assert.Equal(t, backend.ResultFailed, row.LastStatus)
	assert.Equal(t, "B", row.Comment)
	assert.InDelta(t, 2.25, row.Time, 1e-9)
}

func TestUpdateOutcome_StatusOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Options{})
	h := insert(t, s, "test_a", "pkg.mod.test_a")

	require.NoError(t, s.UpdateOutcome(ctx, h, backend.OutcomeRecord{
		Result: backend.ResultError, Comment: "fixture.go:12:setup\nboom", StatusOnly: true,
	}))

	row, err := s.Get(ctx, h)
	require.NoError(t, err)
	assert.Empty(t, row.Verdict)
	assert.Equal(t, backend.ResultError, row.LastStatus)

	require.NoError(t, s.UpdateOutcome(ctx, h, backend.OutcomeRecord{Result: backend.ResultSkipped}))
	row, err = s.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, backend.ResultSkipped, row.Verdict)
}

func TestUpdateOutcome_UnknownHandle(t *testing.T) {
	s := newStore(t, Options{})

	err := s.UpdateOutcome(context.Background(), "404", backend.OutcomeRecord{Result: backend.ResultPassed})
	assert.ErrorIs(t, err, backend.ErrRecordNotFound)
	assert.False(t, backend.IsFault(err))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\d`, escapeLike(`a_b%c\d`))
}
