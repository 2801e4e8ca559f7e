package backend

import (
	"context"
	"time"
)

// Handle identifies a record in the external store: a work item id for the
// remote backend, a row id for the local store.
type Handle string

// Result is the verdict recorded for a test.
type Result string

const (
	ResultNone    Result = ""
	ResultPassed  Result = "passed"
	ResultFailed  Result = "failed"
	ResultBlocked Result = "blocked"
	ResultSkipped Result = "skipped"
	ResultError   Result = "error"
)

// IsValid reports whether r is one of the known results.
func (r Result) IsValid() bool {
	switch r {
	case ResultNone, ResultPassed, ResultFailed, ResultBlocked, ResultSkipped, ResultError:
		return true
	}
	return false
}

// TestCase is a single match returned by a test case query.
type TestCase struct {
	// Title is the record title; a trailing "[...]" carries the parameter suffix.
	Title string `json:"title"`
	// RecordID is the handle of the record.
	RecordID Handle `json:"work_item_id"`
	// ExternalID is the test case id, comparable to a base identifier.
	ExternalID string `json:"test_case_id"`
}

// Query describes a single test case lookup.
type Query struct {
	// Pattern is an exact identifier or a widened pattern ending in ".*".
	Pattern string
}

// Querier resolves query patterns into matching test cases.
type Querier interface {
	QueryTestCases(ctx context.Context, q Query) ([]TestCase, error)
}

// OutcomeRecord is the reconciled result of one test phase.
type OutcomeRecord struct {
	Result     Result
	Comment    string
	ExecutedAt *time.Time
	// Duration is in seconds.
	Duration   *float64
	ExecutedBy string
	// StatusOnly records a last status without assigning a verdict.
	StatusOnly bool
}

// Record is a test record of the active test run in the remote store.
type Record struct {
	TestCaseID Handle     `json:"test_case_id"`
	Result     Result     `json:"result,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	Executed   *time.Time `json:"executed,omitempty"`
	ExecutedBy string     `json:"executed_by,omitempty"`
	Duration   float64    `json:"duration,omitempty"`
}

// Apply merges an outcome into the record the way a test run record is
// filled in: the result always, execution fields when present.
func (r *Record) Apply(o OutcomeRecord) {
	r.Result = o.Result
	r.Comment = o.Comment
	if o.ExecutedAt != nil {
		t := *o.ExecutedAt
		r.Executed = &t
	}
	if o.Duration != nil {
		r.Duration = *o.Duration
	}
	if o.ExecutedBy != "" {
		r.ExecutedBy = o.ExecutedBy
	}
}

// Run is a snapshot of an existing test run.
type Run struct {
	Project string
	Name    string
	// LoggedInUser is the identity recorded as executed-by.
	LoggedInUser string
	Records      map[Handle]*Record
}

// Has reports whether the run contains a record for handle.
func (r *Run) Has(h Handle) bool {
	if r == nil {
		return false
	}
	_, ok := r.Records[h]
	return ok
}

// Executed reports whether the run already holds a verdict for handle.
func (r *Run) Executed(h Handle) bool {
	if r == nil {
		return false
	}
	rec, ok := r.Records[h]
	return ok && rec.Result != ResultNone
}

// RunStore is the remote backend's test run API.
type RunStore interface {
	FetchRun(ctx context.Context, project, run string) (*Run, error)
	AddRecord(ctx context.Context, project, run string, rec Record) error
	UpdateRecord(ctx context.Context, project, run string, rec Record) error
}

// LocalStore is the local relational store's write API.
type LocalStore interface {
	UpdateOutcome(ctx context.Context, h Handle, o OutcomeRecord) error
}
