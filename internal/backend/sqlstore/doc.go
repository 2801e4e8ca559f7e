// Package sqlstore is the local relational backend: a SQLite database with a
// testcases table standing in for the remote test run.
//
// Only test cases without a verdict are offered for selection. Writes never
// replace a verdict once one is stored; later outcomes still refresh the
// last status, comment and time columns.
package sqlstore
