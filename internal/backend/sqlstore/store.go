package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"polarsync/internal/backend"
	"polarsync/internal/config"
	"polarsync/internal/testid"
	"polarsync/pkg/logging"

	_ "modernc.org/sqlite"
)

// busyTimeout lets concurrent writers to the same file wait instead of
// failing immediately with SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// Options configures a Store.
type Options struct {
	// SkipExecuted hides test cases that already carry a last status.
	SkipExecuted bool
	// Create initializes the schema in a new database instead of
	// requiring an existing table.
	Create bool
}

// Store is a SQLite test case database.
type Store struct {
	db   *sql.DB
	path string
	opts Options
}

var (
	_ backend.Querier    = (*Store)(nil)
	_ backend.LocalStore = (*Store)(nil)
)

// Open opens the database at path and checks that the test case table has
// every required column. A missing table or column is a
// config.ConfigurationError.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, config.NewConfigurationError("", "", config.ErrorTypeValidation, "local store path is required")
	}

	if !opts.Create {
		if _, err := os.Stat(path); err != nil {
			return nil, config.NewConfigurationError(path, filepath.Base(path), config.ErrorTypeIO,
				fmt.Sprintf("local store is not readable: %v", err))
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if opts.Create {
		if err := CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	missing, err := missingColumns(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if len(missing) > 0 {
		_ = db.Close()
		return nil, config.NewConfigurationErrorWithDetails(path, filepath.Base(path), config.ErrorTypeSchema,
			fmt.Sprintf("table %s is missing columns: %s", Table, strings.Join(missing, ", ")),
			fmt.Sprintf("required columns: %s", strings.Join(RequiredColumns, ", ")),
			[]string{"Point local.path at an exported test case database"})
	}

	logging.Debug("SQLStore", "Opened %s (skip executed: %t)", path, opts.SkipExecuted)
	return &Store{db: db, path: path, opts: opts}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle, mainly for seeding test databases.
func (s *Store) DB() *sql.DB {
	return s.db
}

// QueryTestCases returns test cases without a verdict whose external id
// matches the query pattern. Widened patterns use a prefix match.
func (s *Store) QueryTestCases(ctx context.Context, q backend.Query) ([]backend.TestCase, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "(verdict IS NULL OR verdict = '')")
	if s.opts.SkipExecuted {
		where = append(where, "(last_status IS NULL OR last_status = '')")
	}
	if testid.IsPattern(q.Pattern) {
		where = append(where, `external_id LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(testid.PatternPrefix(q.Pattern))+"%")
	} else {
		where = append(where, "external_id = ?")
		args = append(args, q.Pattern)
	}

	query := "SELECT id, title, external_id FROM " + Table + " WHERE " + strings.Join(where, " AND ")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backend.NewFault("query", err)
	}
	defer rows.Close()

	var cases []backend.TestCase
	for rows.Next() {
		var (
			id         string
			title      sql.NullString
			externalID string
		)
		if err := rows.Scan(&id, &title, &externalID); err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		// LIKE is case-insensitive for ASCII.
		if !testid.Matches(q.Pattern, externalID) {
			continue
		}
		cases = append(cases, backend.TestCase{
			Title:      title.String,
			RecordID:   backend.Handle(id),
			ExternalID: externalID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, backend.NewFault("query", err)
	}

	logging.Debug("SQLStore", "Query %q returned %d test cases", q.Pattern, len(cases))
	return cases, nil
}

// UpdateOutcome writes an outcome to the test case. An existing verdict is
// kept; last status, comment and time always reflect the latest outcome.
func (s *Store) UpdateOutcome(ctx context.Context, h backend.Handle, o backend.OutcomeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return backend.NewFault("begin update", err)
	}
	rollback := true
	defer func() {
		if rollback {
			_ = tx.Rollback()
		}
	}()

	var verdict sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT verdict FROM "+Table+" WHERE id = ?", string(h)).Scan(&verdict)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("test case %s: %w", h, backend.ErrRecordNotFound)
	}
	if err != nil {
		return backend.NewFault("read verdict", err)
	}

	cols := []string{"last_status = ?", "comment = ?"}
	args := []any{string(o.Result), o.Comment}
	if o.Duration != nil {
		cols = append(cols, "time = ?")
		args = append(args, *o.Duration)
	}
	switch {
	case o.StatusOnly:
	case verdict.String != "":
		logging.Debug("SQLStore", "%s: keeping verdict %q over %q", h, verdict.String, o.Result)
	default:
		cols = append(cols, "verdict = ?")
		args = append(args, string(o.Result))
	}
	args = append(args, string(h))

	if _, err := tx.ExecContext(ctx, "UPDATE "+Table+" SET "+strings.Join(cols, ", ")+" WHERE id = ?", args...); err != nil {
		return backend.NewFault("update", err)
	}
	if err := tx.Commit(); err != nil {
		return backend.NewFault("commit update", err)
	}
	rollback = false
	return nil
}

// Get returns the stored columns of one test case.
func (s *Store) Get(ctx context.Context, h backend.Handle) (Row, error) {
	var (
		row     Row
		id      string
		title   sql.NullString
		verdict sql.NullString
		status  sql.NullString
		comment sql.NullString
		elapsed sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, external_id, verdict, last_status, comment, time FROM "+Table+" WHERE id = ?", string(h)).
		Scan(&id, &title, &row.ExternalID, &verdict, &status, &comment, &elapsed)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("test case %s: %w", h, backend.ErrRecordNotFound)
	}
	if err != nil {
		return Row{}, fmt.Errorf("read test case %s: %w", h, err)
	}
	row.ID = backend.Handle(id)
	row.Title = title.String
	row.Verdict = backend.Result(verdict.String)
	row.LastStatus = backend.Result(status.String)
	row.Comment = comment.String
	row.Time = elapsed.Float64
	return row, nil
}

// Insert adds a test case and returns its handle.
func (s *Store) Insert(ctx context.Context, title, externalID string) (backend.Handle, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO "+Table+" (title, external_id) VALUES (?, ?)", title, externalID)
	if err != nil {
		return "", fmt.Errorf("insert test case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("insert test case: %w", err)
	}
	return backend.Handle(fmt.Sprint(id)), nil
}

// Row is a test case as stored.
type Row struct {
	ID         backend.Handle
	Title      string
	ExternalID string
	Verdict    backend.Result
	LastStatus backend.Result
	Comment    string
	Time       float64
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
