// Package backend defines the contracts shared by the test-management
// backends polarsync can reconcile against.
//
// Two backends exist:
//
//   - remote: a query service reached over MCP that fronts Polarion-style
//     work items and test runs (package remote)
//   - local: a SQLite database holding a testcases table (package sqlstore)
//
// Both satisfy Querier, which is all the lookup cache needs. Result writing
// is backend specific and lives behind RunStore (remote) and LocalStore
// (local).
//
// # Errors
//
// Transient failures of the remote service are reported as *Fault and are
// the only errors the lookup retry policy retries. ErrRecordExists signals
// the create/update conflict resolved by the upsert in the reconciler.
package backend
