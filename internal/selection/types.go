package selection

import (
	"sync"
	"time"

	"polarsync/internal/backend"
	"polarsync/internal/runner"
	"polarsync/internal/testid"
)

// Annotation is the resolution result for one discovered item.
type Annotation struct {
	ItemID string
	ID     testid.ID
	Handle backend.Handle
	// Found is true when the identifier resolved to a single record.
	Found bool
	// InRun is true when the handle belongs to the active run, or when no
	// run membership is required.
	InRun bool
	// Params holds the handles of parametrized variants when the item
	// itself has no record. Such an item runs for its subtests only.
	Params []backend.Handle
}

// Runnable reports whether the annotated item should run.
func (a Annotation) Runnable() bool {
	if a.Found {
		return a.InRun
	}
	return len(a.Params) > 0
}

// Recordable reports whether outcomes of the item itself are written.
func (a Annotation) Recordable() bool {
	return a.Found && a.InRun
}

// Table holds annotations keyed by item id. Entries are never modified
// once added.
type Table struct {
	mu     sync.RWMutex
	byItem map[string]Annotation
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{byItem: make(map[string]Annotation)}
}

// Get returns the annotation for an item id.
func (t *Table) Get(itemID string) (Annotation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.byItem[itemID]
	return a, ok
}

// Len returns the number of annotated items.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byItem)
}

// add stores a unless the item is already annotated, and returns the
// annotation in effect.
func (t *Table) add(a Annotation) Annotation {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byItem[a.ItemID]; ok {
		return existing
	}
	t.byItem[a.ItemID] = a
	return a
}

// Stats summarizes one selection pass.
type Stats struct {
	Items      int
	Resolved   int
	Deselected int
	Queries    int
	Level      int
	Elapsed    time.Duration
}

// Result is the outcome of SelectAndFilter.
type Result struct {
	Selected   []runner.Item
	Deselected []runner.Item
	Table      *Table
	Stats      Stats
}

// RunMembership is the record set of the active run.
type RunMembership interface {
	Has(h backend.Handle) bool
	Executed(h backend.Handle) bool
}
