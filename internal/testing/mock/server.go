package mock

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"polarsync/internal/backend"
	"polarsync/internal/backend/remote"
	"polarsync/pkg/logging"
)

// Server is a fake query service holding mutable run state.
type Server struct {
	fixture   *Fixture
	delay     time.Duration
	mcpServer *server.MCPServer

	mu       sync.Mutex
	runs     map[string]map[backend.Handle]*backend.Record
	faults   map[string]int
	calls    map[string]int
	patterns []string
	queries  []string
}

// NewServer returns a server initialized from f.
func NewServer(f *Fixture) (*Server, error) {
	delay, err := f.delay()
	if err != nil {
		return nil, err
	}

	s := &Server{
		fixture: f,
		delay:   delay,
		runs:    make(map[string]map[backend.Handle]*backend.Record),
		faults:  make(map[string]int),
		calls:   make(map[string]int),
	}
	for tool, n := range f.Faults {
		s.faults[tool] = n
	}
	for _, run := range f.Runs {
		records := make(map[backend.Handle]*backend.Record, len(run.Records))
		for _, r := range run.Records {
			h := backend.Handle(r.TestCaseID)
			records[h] = &backend.Record{TestCaseID: h, Result: backend.Result(r.Result), Comment: r.Comment}
		}
		s.runs[run.Name] = records
	}

	s.mcpServer = server.NewMCPServer(
		"polarsync-mock",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	s.registerTools()

	logging.Debug("MockServer", "Initialized with %d test cases and %d runs", len(f.TestCases), len(f.Runs))
	return s, nil
}

// NewServerFromFile returns a server initialized from a fixture file.
func NewServerFromFile(path string) (*Server, error) {
	f, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	return NewServer(f)
}

// Handler returns the streamable HTTP handler of the server, mounted at /mcp.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(remote.ToolQueryTestCases,
		mcp.WithDescription("Query test cases matching a pattern"),
		mcp.WithString(remote.ArgProject, mcp.Required(), mcp.Description("Project id")),
		mcp.WithString(remote.ArgRun, mcp.Required(), mcp.Description("Test run id")),
		mcp.WithString(remote.ArgPattern, mcp.Required(), mcp.Description("Test case id or widened pattern ending in .*")),
		mcp.WithString(remote.ArgQuery, mcp.Description("Full-text query")),
		mcp.WithString(remote.ArgAssignee, mcp.Description("Assignee id")),
		mcp.WithString(remote.ArgFields, mcp.Description("Comma separated fields to return")),
	), s.wrap(remote.ToolQueryTestCases, s.handleQuery))

	s.mcpServer.AddTool(mcp.NewTool(remote.ToolFetchTestRun,
		mcp.WithDescription("Fetch the records of a test run"),
		mcp.WithString(remote.ArgProject, mcp.Required(), mcp.Description("Project id")),
		mcp.WithString(remote.ArgRun, mcp.Required(), mcp.Description("Test run id")),
	), s.wrap(remote.ToolFetchTestRun, s.handleFetch))

	for _, tool := range []string{remote.ToolAddTestRecord, remote.ToolUpdateTestRecord} {
		s.mcpServer.AddTool(mcp.NewTool(tool,
			mcp.WithDescription("Write a test record"),
			mcp.WithString(remote.ArgProject, mcp.Required(), mcp.Description("Project id")),
			mcp.WithString(remote.ArgRun, mcp.Required(), mcp.Description("Test run id")),
			mcp.WithObject(remote.ArgRecord, mcp.Required(), mcp.Description("Test record")),
		), s.wrap(tool, s.handleWrite(tool == remote.ToolUpdateTestRecord)))
	}
}

type toolFunc func(ctx context.Context, request mcp.CallToolRequest) (interface{}, *remote.ToolError)

// wrap applies call accounting, latency and fault injection around a tool.
func (s *Server) wrap(tool string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if s.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		if s.takeFault(tool) {
			logging.Debug("MockServer", "Injecting fault into %s", tool)
			return toolError(remote.ToolError{Code: remote.CodeFault, Message: "Server raised fault: service temporarily unavailable"}), nil
		}

		result, terr := fn(ctx, request)
		if terr != nil {
			return toolError(*terr), nil
		}
		return jsonResult(result)
	}
}

func (s *Server) takeFault(tool string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[tool]++
	if s.faults[tool] > 0 {
		s.faults[tool]--
		return true
	}
	return false
}

// InjectFaults fails the next n calls of tool.
func (s *Server) InjectFaults(tool string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[tool] = n
}

// Calls returns how often tool was called, faults included.
func (s *Server) Calls(tool string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[tool]
}

// Patterns returns the patterns received by query_test_cases, in order.
func (s *Server) Patterns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.patterns...)
}

// Queries returns the full-text queries received, in order.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Record returns a copy of a run record.
func (s *Server) Record(run string, h backend.Handle) (backend.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[run][h]
	if !ok {
		return backend.Record{}, false
	}
	return *rec, true
}

// Records returns copies of all records of a run ordered by handle.
func (s *Server) Records(run string) []backend.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backend.Record, 0, len(s.runs[run]))
	for _, rec := range s.runs[run] {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestCaseID < out[j].TestCaseID })
	return out
}
