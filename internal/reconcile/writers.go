package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"polarsync/internal/backend"
	"polarsync/pkg/logging"
)

// WriteResult describes what a writer did with an outcome.
type WriteResult struct {
	// Ignored is set when the store cannot hold the outcome.
	Ignored bool
	// Conflict is set when an existing record had to be updated.
	Conflict bool
}

// Writer persists one outcome. attempt starts at 1 and increases with
// each retry of the same write.
type Writer interface {
	Write(ctx context.Context, h backend.Handle, o backend.OutcomeRecord, attempt int) (WriteResult, error)
}

// RemoteWriter writes outcomes as test records of a remote run.
type RemoteWriter struct {
	store   backend.RunStore
	project string
	name    string

	mu  sync.Mutex
	run *backend.Run
}

// NewRemoteWriter returns a writer for the run project/name, starting from
// the already fetched snapshot run.
func NewRemoteWriter(store backend.RunStore, project, name string, run *backend.Run) *RemoteWriter {
	if run == nil {
		run = &backend.Run{Project: project, Name: name}
	}
	if run.Records == nil {
		run.Records = make(map[backend.Handle]*backend.Record)
	}
	return &RemoteWriter{store: store, project: project, name: name, run: run}
}

// Run returns the current run snapshot.
func (w *RemoteWriter) Run() *backend.Run {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.run
}

// Write adds the record to the run, falling back to an update when the
// record already exists. The run is reloaded before the second attempt.
func (w *RemoteWriter) Write(ctx context.Context, h backend.Handle, o backend.OutcomeRecord, attempt int) (WriteResult, error) {
	if o.StatusOnly {
		logging.Debug("Reconciler", "%s: test runs hold verdicts only, not recording %s", h, o.Result)
		return WriteResult{Ignored: true}, nil
	}

	if attempt == 2 {
		if err := w.reload(ctx); err != nil {
			return WriteResult{}, err
		}
	}

	rec := w.record(h)
	rec.Apply(o)
	if o.ExecutedBy == "" {
		rec.ExecutedBy = w.Run().LoggedInUser
	}

	err := w.store.AddRecord(ctx, w.project, w.name, rec)
	if err == nil {
		w.remember(rec)
		return WriteResult{}, nil
	}
	if !errors.Is(err, backend.ErrRecordExists) {
		return WriteResult{}, fmt.Errorf("add record %s: %w", h, err)
	}

	if err := w.reload(ctx); err != nil {
		return WriteResult{}, err
	}
	if err := w.store.UpdateRecord(ctx, w.project, w.name, rec); err != nil {
		return WriteResult{}, fmt.Errorf("update record %s: %w", h, err)
	}
	w.remember(rec)
	return WriteResult{Conflict: true}, nil
}

func (w *RemoteWriter) record(h backend.Handle) backend.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.run.Records[h]; ok {
		return *existing
	}
	return backend.Record{TestCaseID: h}
}

func (w *RemoteWriter) remember(rec backend.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.run.Records[rec.TestCaseID] = &rec
}

func (w *RemoteWriter) reload(ctx context.Context) error {
	run, err := w.store.FetchRun(ctx, w.project, w.name)
	if err != nil {
		return fmt.Errorf("reload run %s: %w", w.name, err)
	}
	if run.Records == nil {
		run.Records = make(map[backend.Handle]*backend.Record)
	}
	w.mu.Lock()
	w.run = run
	w.mu.Unlock()
	return nil
}

// LocalWriter writes outcomes to a local store.
type LocalWriter struct {
	store backend.LocalStore
}

// NewLocalWriter returns a writer for store.
func NewLocalWriter(store backend.LocalStore) *LocalWriter {
	return &LocalWriter{store: store}
}

// Write updates the row of h. The store keeps an existing verdict.
func (w *LocalWriter) Write(ctx context.Context, h backend.Handle, o backend.OutcomeRecord, attempt int) (WriteResult, error) {
	if err := w.store.UpdateOutcome(ctx, h, o); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{}, nil
}
