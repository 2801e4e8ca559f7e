package reconcile

import (
	"context"
	"errors"
	"sync"

	"polarsync/internal/backend"
	"polarsync/internal/runner"
)

// fakeRunStore keeps records in memory and can fail the next N adds.
type fakeRunStore struct {
	mu        sync.Mutex
	records   map[backend.Handle]backend.Record
	user      string
	addFaults int

	adds, updates, fetches int
}

func newFakeRunStore(existing ...backend.Handle) *fakeRunStore {
	s := &fakeRunStore{records: make(map[backend.Handle]backend.Record), user: "jenkins"}
	for _, h := range existing {
		s.records[h] = backend.Record{TestCaseID: h}
	}
	return s
}

func (s *fakeRunStore) FetchRun(ctx context.Context, project, run string) (*backend.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	r := &backend.Run{Project: project, Name: run, LoggedInUser: s.user, Records: make(map[backend.Handle]*backend.Record)}
	for h, rec := range s.records {
		rec := rec
		r.Records[h] = &rec
	}
	return r, nil
}

func (s *fakeRunStore) AddRecord(ctx context.Context, project, run string, rec backend.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addFaults > 0 {
		s.addFaults--
		return backend.NewFault("add_test_record", errors.New("connection reset"))
	}
	if _, ok := s.records[rec.TestCaseID]; ok {
		return backend.ErrRecordExists
	}
	s.adds++
	s.records[rec.TestCaseID] = rec
	return nil
}

func (s *fakeRunStore) UpdateRecord(ctx context.Context, project, run string, rec backend.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.TestCaseID]; !ok {
		return backend.ErrRecordNotFound
	}
	s.updates++
	s.records[rec.TestCaseID] = rec
	return nil
}

func (s *fakeRunStore) get(h backend.Handle) (backend.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[h]
	return rec, ok
}

// staticHandles maps item ids to handles.
type staticHandles map[string]backend.Handle

func (s staticHandles) Handle(ctx context.Context, item runner.Item) (backend.Handle, bool) {
	h, ok := s[item.ID]
	return h, ok
}

type fakeLocalStore struct {
	mu       sync.Mutex
	verdicts map[backend.Handle]backend.Result
	status   map[backend.Handle]backend.Result
	err      error
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{verdicts: make(map[backend.Handle]backend.Result), status: make(map[backend.Handle]backend.Result)}
}

func (s *fakeLocalStore) UpdateOutcome(ctx context.Context, h backend.Handle, o backend.OutcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if !o.StatusOnly && s.verdicts[h] == backend.ResultNone {
		s.verdicts[h] = o.Result
	}
	s.status[h] = o.Result
	return nil
}
