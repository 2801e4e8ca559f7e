package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Table is the test case table polarsync reads and writes.
const Table = "testcases"

// RequiredColumns must exist in Table.
var RequiredColumns = []string{"id", "title", "external_id", "verdict", "last_status", "comment", "time"}

const createTable = `
CREATE TABLE IF NOT EXISTS testcases (
	id          INTEGER PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	external_id TEXT NOT NULL,
	verdict     TEXT,
	last_status TEXT,
	comment     TEXT,
	time        REAL
);
CREATE INDEX IF NOT EXISTS testcases_external_id ON testcases(external_id);
`

// CreateSchema creates the test case table when it does not exist.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// missingColumns returns the required columns absent from Table, sorted.
func missingColumns(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+Table+")")
	if err != nil {
		return nil, fmt.Errorf("read table info: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		present[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table info: %w", err)
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing, nil
}
