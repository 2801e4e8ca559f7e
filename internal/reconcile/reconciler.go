// Package reconcile turns runner phase reports into record updates.
//
// Every report goes through Decide, which applies the recording policy and
// yields at most one OutcomeRecord. The record is written by a backend
// specific Writer under the retry.Write policy. A write that still fails is
// dropped with a warning; the runner never sees an error.
package reconcile

import (
	"context"
	"sync"

	"polarsync/internal/backend"
	"polarsync/internal/retry"
	"polarsync/internal/runner"
	"polarsync/pkg/logging"
)

// HandleSource returns the record handle of a runnable item.
type HandleSource interface {
	Handle(ctx context.Context, item runner.Item) (backend.Handle, bool)
}

// itemState tracks the last phase seen for an item.
type itemState int

const (
	statePending itemState = iota
	stateSetup
	stateCall
	stateDone
)

func stateFor(p runner.Phase) itemState {
	switch p {
	case runner.PhaseSetup:
		return stateSetup
	case runner.PhaseCall:
		return stateCall
	case runner.PhaseTeardown:
		return stateDone
	}
	return statePending
}

// Reconciler records phase reports. It implements runner.Reporter.
type Reconciler struct {
	policy  Policy
	handles HandleSource
	writer  Writer
	retry   retry.Policy
	metrics *Metrics

	mu     sync.Mutex
	states map[string]itemState
}

var _ runner.Reporter = (*Reconciler)(nil)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithRetryPolicy overrides the write retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Reconciler) {
		r.retry = p
	}
}

// WithMetrics sets the metrics to update.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// New returns a reconciler writing through w.
func New(policy Policy, handles HandleSource, w Writer, opts ...Option) *Reconciler {
	r := &Reconciler{
		policy:  policy,
		handles: handles,
		writer:  w,
		retry:   retry.Write,
		metrics: NewMetrics(),
		states:  make(map[string]itemState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the reconciler's metrics.
func (r *Reconciler) Metrics() *Metrics {
	return r.metrics
}

// Report handles one phase report of item.
func (r *Reconciler) Report(ctx context.Context, item runner.Item, rep runner.Report) {
	if !r.advance(item, rep.Phase) {
		return
	}

	o, ok := Decide(r.policy, rep)
	if !ok {
		return
	}

	h, ok := r.handles.Handle(ctx, item)
	if !ok {
		logging.Debug("Reconciler", "No record for %s, not recording %s", item.ID, rep.Phase)
		return
	}

	var res WriteResult
	err := r.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		var werr error
		res, werr = r.writer.Write(ctx, h, o, attempt)
		return werr
	})
	if err != nil {
		logging.Warn("Reconciler", "%s: failed to write result: %v", h, err)
		r.metrics.RecordDrop(o.Result, h)
		return
	}

	switch {
	case res.Ignored:
		r.metrics.RecordIgnored(h)
	case res.Conflict:
		r.metrics.RecordConflict(h)
		r.metrics.RecordWrite(o.Result, h)
	default:
		r.metrics.RecordWrite(o.Result, h)
	}
}

// advance moves the item to the reported phase and reports whether the
// report should be processed.
func (r *Reconciler) advance(item runner.Item, phase runner.Phase) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.states[item.ID]
	if current == stateDone {
		logging.Debug("Reconciler", "Ignoring %s report for finished %s", phase, item.ID)
		return false
	}

	next := stateFor(phase)
	if next == statePending {
		logging.Debug("Reconciler", "Ignoring unknown phase %q for %s", phase, item.ID)
		return false
	}
	if next <= current || (next == stateCall && current == statePending) {
		logging.Debug("Reconciler", "Out of order %s report for %s", phase, item.ID)
	}
	r.states[item.ID] = next
	return true
}
