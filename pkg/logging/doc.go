// Package logging provides the structured logger used across polarsync.
//
// It is a thin layer over Go's slog package: every entry carries a subsystem
// attribute so that output from collection, lookup, retries and result
// recording can be told apart in a single stream.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Selection", "Resolved %d of %d test(s)", resolved, total)
//	logging.Debug("LookupCache", "Issuing query %q", pattern)
//	logging.Warn("Reconciler", "%s: failed to write result", handle)
//	logging.Error("Session", err, "Failed to open backend")
//
// # Subsystems
//
//   - Config: configuration loading and validation
//   - Session: backend acquisition and release
//   - Selection: collection-time filtering
//   - LookupCache: query issuance and identifier caching
//   - Retry: retry attempts and exhaustion
//   - Reconciler: outcome decisions and writes
//   - RemoteBackend / SQLStore: backend-specific operations
//   - GoTest: the go test runner adapter
//   - MockServer: the fixture driven query service
//
// Warnings and errors logged before InitForCLI is called are written to
// stderr so that a write failure is never silently lost.
package logging
