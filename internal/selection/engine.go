// Package selection attaches record handles to discovered items and keeps
// only the items that can be recorded.
package selection

import (
	"context"
	"fmt"
	"time"

	"polarsync/internal/backend"
	"polarsync/internal/lookup"
	"polarsync/internal/runner"
	"polarsync/internal/testid"
	"polarsync/pkg/logging"
)

// Options control how items are selected.
type Options struct {
	Normalizer testid.Normalizer
	// Level is the configured breadth level, lookup.Auto to derive it from
	// the number of items.
	Level int
	// AssigneeScoped is set when queries are limited to one assignee.
	AssigneeScoped bool
	// Run is the active run's record set, nil for stores without runs.
	Run RunMembership
	// RequireRunMembership drops items whose handle is not part of Run.
	RequireRunMembership bool
	// SkipExecuted drops items whose run record already has a verdict.
	SkipExecuted bool
	// Hooks is notified of deselected items.
	Hooks runner.Hooks
}

// Engine resolves items through a lookup cache.
type Engine struct {
	cache *lookup.Cache
	opts  Options
	table *Table
	level int
}

// NewEngine returns an engine resolving through cache.
func NewEngine(cache *lookup.Cache, opts Options) *Engine {
	return &Engine{
		cache: cache,
		opts:  opts,
		table: NewTable(),
		level: opts.Level,
	}
}

// Table returns the annotation table filled by the engine.
func (e *Engine) Table() *Table {
	return e.table
}

// SelectAndFilter annotates every item and splits them into the runnable
// and deselected sets, preserving order. A fatal lookup error aborts the
// selection.
func (e *Engine) SelectAndFilter(ctx context.Context, items []runner.Item) (Result, error) {
	start := time.Now()
	queriesBefore := e.cache.Stats().Queries
	e.level = lookup.BreadthLevel(e.opts.Level, len(items), e.opts.AssigneeScoped)
	logging.Debug("Selection", "Resolving %d items at breadth level %d", len(items), e.level)

	res := Result{Table: e.table}
	for _, item := range items {
		a, err := e.annotate(ctx, item)
		if err != nil {
			return Result{}, fmt.Errorf("failed to resolve %s: %w", item.ID, err)
		}
		if a.Found || len(a.Params) > 0 {
			res.Stats.Resolved++
		}
		if a.Runnable() {
			res.Selected = append(res.Selected, item)
		} else {
			res.Deselected = append(res.Deselected, item)
		}
	}

	res.Stats.Items = len(items)
	res.Stats.Deselected = len(res.Deselected)
	res.Stats.Queries = e.cache.Stats().Queries - queriesBefore
	res.Stats.Level = e.level
	res.Stats.Elapsed = time.Since(start)

	if len(res.Deselected) > 0 && e.opts.Hooks != nil {
		e.opts.Hooks.Deselected(res.Deselected)
	}

	logging.Info("Selection", "Fetched %d item(s) with %d queries in %s, %d deselected",
		res.Stats.Resolved, res.Stats.Queries, res.Stats.Elapsed.Round(10*time.Millisecond), res.Stats.Deselected)
	return res, nil
}

// Handle returns the handle of a runnable item. Items missing from the
// table, such as subtests discovered only while running, are resolved on
// demand; lookup errors leave them unresolved.
func (e *Engine) Handle(ctx context.Context, item runner.Item) (backend.Handle, bool) {
	a, ok := e.table.Get(item.ID)
	if !ok {
		var err error
		a, err = e.annotate(ctx, item)
		if err != nil {
			logging.Warn("Selection", "Could not resolve %s: %v", item.ID, err)
			return "", false
		}
	}
	if !a.Recordable() {
		return "", false
	}
	return a.Handle, true
}

func (e *Engine) annotate(ctx context.Context, item runner.Item) (Annotation, error) {
	id := e.opts.Normalizer.Normalize(item.NodePath)
	h, found, err := e.cache.Resolve(ctx, id, e.level)
	if err != nil {
		return Annotation{}, err
	}

	a := Annotation{ItemID: item.ID, ID: id, Handle: h, Found: found, InRun: true}
	switch {
	case found:
		a.InRun = e.inRun(h)
	case id.Param() == "":
		for _, ph := range e.cache.ParamHandles(id.Canonical) {
			if e.inRun(ph) {
				a.Params = append(a.Params, ph)
			}
		}
		if len(a.Params) > 0 {
			logging.Debug("Selection", "%s has %d parametrized test case(s)", item.ID, len(a.Params))
		}
	}
	if !a.Found && len(a.Params) == 0 {
		logging.Debug("Selection", "No test case found for %s (%s)", item.ID, id.Canonical)
	}
	return e.table.add(a), nil
}

// inRun applies the run membership and already-executed filters to h.
func (e *Engine) inRun(h backend.Handle) bool {
	if e.opts.Run == nil {
		return true
	}
	if e.opts.RequireRunMembership && !e.opts.Run.Has(h) {
		return false
	}
	if e.opts.SkipExecuted && e.opts.Run.Executed(h) {
		return false
	}
	return true
}
