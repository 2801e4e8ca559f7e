package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"polarsync/internal/backend"
	"polarsync/pkg/logging"
)

const (
	protocolVersion = "2024-11-05"
	defaultTimeout  = 60 * time.Second
)

// Config configures a Client.
type Config struct {
	// Endpoint is the streamable HTTP URL of the query service.
	Endpoint string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds every tool call.
	Timeout time.Duration
	// Query shapes test case queries.
	Query QueryOptions
	// ClientVersion is reported during initialization.
	ClientVersion string
}

// Client is a connected query service client. It satisfies
// backend.Querier and backend.RunStore.
type Client struct {
	cfg Config
	mcp client.MCPClient
}

var (
	_ backend.Querier  = (*Client)(nil)
	_ backend.RunStore = (*Client)(nil)
)

// Dial connects to the query service and performs the MCP handshake.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "dev"
	}

	var opts []transport.StreamableHTTPCOption
	if cfg.Token != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{
			"Authorization": "Bearer " + cfg.Token,
		}))
	}

	c, err := client.NewStreamableHttpClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create streamable HTTP client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, backend.NewFault("connect", fmt.Errorf("failed to start client: %w", err))
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = protocolVersion
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "polarsync",
		Version: cfg.ClientVersion,
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if _, err := c.Initialize(initCtx, initRequest); err != nil {
		c.Close()
		return nil, backend.NewFault("initialize", err)
	}

	logging.Debug("RemoteBackend", "Connected to %s", cfg.Endpoint)
	return &Client{cfg: cfg, mcp: c}, nil
}

// NewWithClient wraps an already initialized MCP client.
func NewWithClient(c client.MCPClient, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, mcp: c}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// QueryTestCases returns the test cases matching q.Pattern.
func (c *Client) QueryTestCases(ctx context.Context, q backend.Query) ([]backend.TestCase, error) {
	args := map[string]interface{}{
		ArgProject: c.cfg.Query.Project,
		ArgRun:     c.cfg.Query.Run,
		ArgPattern: q.Pattern,
		ArgQuery:   BuildQuery(c.cfg.Query, q.Pattern),
		ArgFields:  QueryFields,
	}
	if c.cfg.Query.Assignee != "" {
		args[ArgAssignee] = c.cfg.Query.Assignee
	}

	var cases []backend.TestCase
	if err := c.call(ctx, ToolQueryTestCases, args, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// FetchRun loads the records of a test run.
func (c *Client) FetchRun(ctx context.Context, project, run string) (*backend.Run, error) {
	var payload RunPayload
	err := c.call(ctx, ToolFetchTestRun, map[string]interface{}{
		ArgProject: project,
		ArgRun:     run,
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.Run(project, run), nil
}

// AddRecord adds a new record to a run.
func (c *Client) AddRecord(ctx context.Context, project, run string, rec backend.Record) error {
	return c.writeRecord(ctx, ToolAddTestRecord, project, run, rec)
}

// UpdateRecord replaces an existing record of a run.
func (c *Client) UpdateRecord(ctx context.Context, project, run string, rec backend.Record) error {
	return c.writeRecord(ctx, ToolUpdateTestRecord, project, run, rec)
}

func (c *Client) writeRecord(ctx context.Context, tool, project, run string, rec backend.Record) error {
	record, err := toArgument(rec)
	if err != nil {
		return err
	}
	return c.call(ctx, tool, map[string]interface{}{
		ArgProject: project,
		ArgRun:     run,
		ArgRecord:  record,
	}, nil)
}

// call invokes tool and decodes its JSON text result into out.
func (c *Client) call(ctx context.Context, tool string, args map[string]interface{}, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	request := mcp.CallToolRequest{}
	request.Params.Name = tool
	request.Params.Arguments = args

	start := time.Now()
	result, err := c.mcp.CallTool(callCtx, request)
	if err != nil {
		return backend.NewFault(tool, err)
	}
	if result == nil {
		return backend.NewFault(tool, errors.New("empty result"))
	}
	logging.Debug("RemoteBackend", "%s took %s", tool, time.Since(start).Round(time.Millisecond))

	text := resultText(result)
	if result.IsError {
		var te ToolError
		if jerr := json.Unmarshal([]byte(text), &te); jerr != nil || te.Code == "" {
			return fmt.Errorf("%s failed: %s", tool, text)
		}
		return te.Err(tool)
	}

	if out == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", tool, err)
	}
	return nil
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, textContent.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// toArgument turns v into the generic JSON object form used for tool
// arguments.
func toArgument(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
