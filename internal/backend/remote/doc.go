// Package remote talks to the test-management query service over MCP.
//
// The service exposes four tools:
//
//	query_test_cases    {project, run, pattern, query, assignee, fields}
//	fetch_test_run      {project, run}
//	add_test_record     {project, run, record}
//	update_test_record  {project, run, record}
//
// Results are JSON text content. Failures are tool results flagged as
// errors whose text is a JSON ToolError. A "fault" code, or any transport
// failure, is transient and surfaces as *backend.Fault.
package remote
