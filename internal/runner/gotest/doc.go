// Package gotest runs Go tests through `go test -json` and turns the event
// stream into runner items and phase reports.
//
// Items are identified as "<import path>::<TestName>". Subtests become
// parameter suffixes: TestParse/empty_input is reported as
// "<import path>::TestParse[empty_input]".
//
// Go tests have no separate setup or teardown, so each terminal event is
// expanded into the phases a reconciler expects:
//
//	pass  setup passed, call passed, teardown passed
//	fail  setup passed, call failed, teardown passed
//	skip  setup skipped, teardown passed
package gotest
