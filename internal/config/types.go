package config

import (
	"os"
	"time"
)

// BackendKind selects where test cases are looked up and results written.
type BackendKind string

const (
	// BackendRemote talks to the Polarion query service over MCP.
	BackendRemote BackendKind = "remote"
	// BackendLocal reads and writes a SQLite test case database.
	BackendLocal BackendKind = "local"
)

// Config is the top-level configuration structure for polarsync.
type Config struct {
	Backend BackendKind `yaml:"backend"`
	Project string      `yaml:"project"`
	Run     string      `yaml:"run"`

	Remote    RemoteConfig    `yaml:"remote"`
	Local     LocalConfig     `yaml:"local"`
	Selection SelectionConfig `yaml:"selection"`
	Record    RecordConfig    `yaml:"record"`
	GoTest    GoTestConfig    `yaml:"gotest"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// RemoteConfig configures the MCP query service connection.
type RemoteConfig struct {
	Endpoint string `yaml:"endpoint"`
	// Token is sent as a bearer token. TokenEnv names an environment
	// variable to read it from instead.
	Token    string        `yaml:"token,omitempty"`
	TokenEnv string        `yaml:"token_env,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// BearerToken returns the configured token, preferring the literal value.
func (r RemoteConfig) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	if r.TokenEnv != "" {
		return os.Getenv(r.TokenEnv)
	}
	return ""
}

// LocalConfig configures the SQLite store.
type LocalConfig struct {
	Path string `yaml:"path"`
}

// SelectionConfig controls which collected tests are kept.
type SelectionConfig struct {
	// BreadthLevel widens lookups by this many trailing segments; -1 picks
	// a level from the number of collected tests.
	BreadthLevel int    `yaml:"breadth_level"`
	Assignee     string `yaml:"assignee,omitempty"`
	// Importance restricts lookups to these case importance values.
	Importance []string `yaml:"importance,omitempty"`
	// BaseNamespace is the package segment at which normalized
	// identifiers start.
	BaseNamespace string `yaml:"base_namespace,omitempty"`

	CollectBlocked      bool `yaml:"collect_blocked"`
	CollectFailed       bool `yaml:"collect_failed"`
	SkipAlreadyExecuted bool `yaml:"skip_already_executed"`
	// RequireRunMembership deselects tests whose case is not part of the
	// run. Unset means true for the remote backend and false for local.
	RequireRunMembership *bool `yaml:"require_run_membership,omitempty"`
}

// RecordConfig controls which outcomes are written back.
type RecordConfig struct {
	None    bool `yaml:"none"`
	Skipped bool `yaml:"skipped"`
	All     bool `yaml:"all"`
	// BlockerPatterns mark a skip as blocked when any matches its text.
	BlockerPatterns []string `yaml:"blocker_patterns"`
	// SkipReasonMarkers restrict which skip reasons count as explicit.
	// Empty accepts any non-empty reason.
	SkipReasonMarkers []string `yaml:"skip_reason_markers,omitempty"`
}

// GoTestConfig configures the go test runner.
type GoTestConfig struct {
	Dir      string   `yaml:"dir"`
	Packages []string `yaml:"packages,omitempty"`
	Flags    []string `yaml:"flags,omitempty"`
}

// RunMembershipRequired resolves the require_run_membership default for
// the configured backend.
func (c Config) RunMembershipRequired() bool {
	if c.Selection.RequireRunMembership != nil {
		return *c.Selection.RequireRunMembership
	}
	return c.Backend != BackendLocal
}

// AssigneeScoped reports whether lookups are restricted to one assignee.
func (c Config) AssigneeScoped() bool {
	return c.Selection.Assignee != ""
}
