package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"polarsync/internal/backend"
	"polarsync/internal/backend/remote"
	"polarsync/internal/testid"
)

func (s *Server) handleQuery(ctx context.Context, request mcp.CallToolRequest) (interface{}, *remote.ToolError) {
	project, run, terr := s.scope(request)
	if terr != nil {
		return nil, terr
	}
	pattern, err := request.RequireString(remote.ArgPattern)
	if err != nil {
		return nil, invalid(err.Error())
	}
	args := request.GetArguments()
	query, _ := args[remote.ArgQuery].(string)
	assignee, _ := args[remote.ArgAssignee].(string)

	opts := remote.QueryOptions{
		Project:        project,
		Run:            run,
		CollectBlocked: strings.Contains(query, `"blocked")`),
		CollectFailed:  strings.Contains(query, `"failed")`),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, pattern)
	s.queries = append(s.queries, query)

	records := s.runs[run]
	matches := []backend.TestCase{}
	for _, tc := range s.fixture.TestCases {
		if tc.Inactive || !testid.Matches(pattern, tc.TestCaseID) {
			continue
		}
		if assignee != "" && tc.Assignee != assignee {
			continue
		}
		if rec, ok := records[backend.Handle(tc.WorkItemID)]; ok && !opts.Admits(string(rec.Result)) {
			continue
		}
		matches = append(matches, backend.TestCase{
			Title:      tc.Title,
			RecordID:   backend.Handle(tc.WorkItemID),
			ExternalID: tc.TestCaseID,
		})
	}
	return matches, nil
}

func (s *Server) handleFetch(ctx context.Context, request mcp.CallToolRequest) (interface{}, *remote.ToolError) {
	_, run, terr := s.scope(request)
	if terr != nil {
		return nil, terr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.runs[run]
	if !ok {
		return nil, &remote.ToolError{Code: remote.CodeNotFound, Message: fmt.Sprintf("test run %s does not exist", run)}
	}

	payload := remote.RunPayload{LoggedInUser: s.fixture.LoggedInUser, Records: []backend.Record{}}
	for _, rec := range records {
		payload.Records = append(payload.Records, *rec)
	}
	return payload, nil
}

func (s *Server) handleWrite(update bool) toolFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (interface{}, *remote.ToolError) {
		_, run, terr := s.scope(request)
		if terr != nil {
			return nil, terr
		}
		rec, err := decodeRecord(request.GetArguments()[remote.ArgRecord])
		if err != nil {
			return nil, invalid(err.Error())
		}
		if rec.TestCaseID == "" {
			return nil, invalid("record has no test_case_id")
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		records, ok := s.runs[run]
		if !ok {
			return nil, &remote.ToolError{Code: remote.CodeNotFound, Message: fmt.Sprintf("test run %s does not exist", run)}
		}
		_, exists := records[rec.TestCaseID]
		switch {
		case update && !exists:
			return nil, &remote.ToolError{Code: remote.CodeNotFound, Message: fmt.Sprintf("no record for %s", rec.TestCaseID)}
		case !update && exists:
			return nil, &remote.ToolError{Code: remote.CodeRecordExists, Message: fmt.Sprintf("record for %s already exists", rec.TestCaseID)}
		}
		records[rec.TestCaseID] = &rec
		return map[string]interface{}{"test_case_id": rec.TestCaseID}, nil
	}
}

// scope reads and checks the project and run arguments.
func (s *Server) scope(request mcp.CallToolRequest) (string, string, *remote.ToolError) {
	project, err := request.RequireString(remote.ArgProject)
	if err != nil {
		return "", "", invalid(err.Error())
	}
	run, err := request.RequireString(remote.ArgRun)
	if err != nil {
		return "", "", invalid(err.Error())
	}
	if s.fixture.Project != "" && project != s.fixture.Project {
		return "", "", invalid(fmt.Sprintf("unknown project %s", project))
	}
	return project, run, nil
}

func decodeRecord(raw interface{}) (backend.Record, error) {
	var rec backend.Record
	if raw == nil {
		return rec, fmt.Errorf("missing record")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("invalid record: %w", err)
	}
	return rec, nil
}

func invalid(msg string) *remote.ToolError {
	return &remote.ToolError{Code: remote.CodeInvalid, Message: msg}
}

func toolError(te remote.ToolError) *mcp.CallToolResult {
	return mcp.NewToolResultError(te.String())
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
