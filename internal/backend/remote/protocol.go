package remote

import (
	"encoding/json"
	"fmt"

	"polarsync/internal/backend"
)

// Tool names.
const (
	ToolQueryTestCases   = "query_test_cases"
	ToolFetchTestRun     = "fetch_test_run"
	ToolAddTestRecord    = "add_test_record"
	ToolUpdateTestRecord = "update_test_record"
)

// Argument names.
const (
	ArgProject  = "project"
	ArgRun      = "run"
	ArgPattern  = "pattern"
	ArgQuery    = "query"
	ArgAssignee = "assignee"
	ArgFields   = "fields"
	ArgRecord   = "record"
)

// QueryFields are the test case fields requested from query_test_cases.
const QueryFields = "title,work_item_id,test_case_id"

// Error codes carried by ToolError.
const (
	CodeFault        = "fault"
	CodeRecordExists = "record_exists"
	CodeNotFound     = "not_found"
	CodeInvalid      = "invalid"
)

// ToolError is the payload of a failed tool call.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Err converts the payload into the matching backend error for tool.
func (e ToolError) Err(tool string) error {
	switch e.Code {
	case CodeFault:
		return backend.NewFault(tool, fmt.Errorf("%s", e.Message))
	case CodeRecordExists:
		return fmt.Errorf("%s: %s: %w", tool, e.Message, backend.ErrRecordExists)
	case CodeNotFound:
		return fmt.Errorf("%s: %s: %w", tool, e.Message, backend.ErrRecordNotFound)
	}
	return fmt.Errorf("%s failed (%s): %s", tool, e.Code, e.Message)
}

// String encodes the payload as sent in tool results.
func (e ToolError) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// RunPayload is the result of fetch_test_run.
type RunPayload struct {
	Records      []backend.Record `json:"records"`
	LoggedInUser string           `json:"logged_in_user"`
}

// Run converts the payload into a run snapshot.
func (p RunPayload) Run(project, name string) *backend.Run {
	run := &backend.Run{
		Project:      project,
		Name:         name,
		LoggedInUser: p.LoggedInUser,
		Records:      make(map[backend.Handle]*backend.Record, len(p.Records)),
	}
	for i := range p.Records {
		rec := p.Records[i]
		run.Records[rec.TestCaseID] = &rec
	}
	return run
}
