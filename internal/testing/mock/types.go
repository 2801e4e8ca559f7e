package mock

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixture is the initial state of the fake service.
type Fixture struct {
	// Project is the only project the service answers for. Empty accepts any.
	Project string `yaml:"project"`
	// LoggedInUser is reported by fetch_test_run.
	LoggedInUser string `yaml:"logged_in_user"`
	// TestCases are the work items known to the service.
	TestCases []TestCaseFixture `yaml:"test_cases"`
	// Runs are the existing test runs.
	Runs []RunFixture `yaml:"runs"`
	// Faults fails the first N calls of each named tool.
	Faults map[string]int `yaml:"faults,omitempty"`
	// Delay simulates response latency (e.g., "2s", "500ms").
	Delay string `yaml:"delay,omitempty"`
}

// TestCaseFixture is one work item.
type TestCaseFixture struct {
	Title      string `yaml:"title"`
	WorkItemID string `yaml:"work_item_id"`
	TestCaseID string `yaml:"test_case_id"`
	Assignee   string `yaml:"assignee,omitempty"`
	Inactive   bool   `yaml:"inactive,omitempty"`
}

// RunFixture is one test run and its planned records.
type RunFixture struct {
	Name    string          `yaml:"name"`
	Records []RecordFixture `yaml:"records"`
}

// RecordFixture is a record of a run.
type RecordFixture struct {
	TestCaseID string `yaml:"test_case_id"`
	Result     string `yaml:"result,omitempty"`
	Comment    string `yaml:"comment,omitempty"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if _, err := f.delay(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFixture reads and decodes a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file %s: %w", path, err)
	}
	f, err := ParseFixture(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (f *Fixture) delay() (time.Duration, error) {
	if f.Delay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Delay)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", f.Delay, err)
	}
	return d, nil
}
