package lookup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"polarsync/internal/backend"
	"polarsync/internal/retry"
	"polarsync/internal/testid"
	"polarsync/pkg/logging"
)

// Stats reports cache activity.
type Stats struct {
	// Cached is the number of canonical identifiers with a handle.
	Cached int
	// Queries is the number of patterns issued to the backend.
	Queries int
	// Ambiguous is the number of identifiers dropped for mapping to more
	// than one handle.
	Ambiguous int
}

// Cache memoizes canonical identifier to handle mappings and the set of
// issued query patterns. It is safe for concurrent use.
type Cache struct {
	querier backend.Querier
	policy  retry.Policy

	mu        sync.RWMutex
	handles   map[string]backend.Handle
	ambiguous map[string]struct{}
	issued    map[string]struct{}

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithPolicy overrides the retry policy used for queries.
func WithPolicy(p retry.Policy) Option {
	return func(c *Cache) {
		c.policy = p
	}
}

// New returns an empty cache backed by q.
func New(q backend.Querier, opts ...Option) *Cache {
	c := &Cache{
		querier:   q,
		policy:    retry.Lookup,
		handles:   make(map[string]backend.Handle),
		ambiguous: make(map[string]struct{}),
		issued:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the handle for id, querying the backend with the pattern
// widened by level when the id is not cached yet. The boolean is false when
// no single record matches. An error is returned only when the query could
// not be completed; retry exhaustion satisfies retry.IsFatal.
func (c *Cache) Resolve(ctx context.Context, id testid.ID, level int) (backend.Handle, bool, error) {
	if h, ok := c.Cached(id.Canonical); ok {
		return h, true, nil
	}

	pattern := testid.Widen(id.Base, level)
	if c.covered(pattern, id.Base) {
		return "", false, nil
	}

	if _, err, _ := c.group.Do(pattern, func() (interface{}, error) {
		return nil, c.issue(ctx, pattern)
	}); err != nil {
		return "", false, err
	}

	h, ok := c.Cached(id.Canonical)
	return h, ok, nil
}

// Cached returns the handle for a canonical identifier without querying.
func (c *Cache) Cached(canonical string) (backend.Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handles[canonical]
	return h, ok
}

// ParamHandles returns the handles cached for parametrized variants of
// canonical ("canonical[...]"), sorted by canonical identifier. It lets a
// parent test with per-parameter records be selected so its subtests run.
func (c *Cache) ParamHandles(canonical string) []backend.Handle {
	prefix := canonical + "["
	c.mu.RLock()
	defer c.mu.RUnlock()

	var keys []string
	for k := range c.handles {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	handles := make([]backend.Handle, len(keys))
	for i, k := range keys {
		handles[i] = c.handles[k]
	}
	return handles
}

// Issued reports whether pattern was already sent to the backend.
func (c *Cache) Issued(pattern string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.issued[pattern]
	return ok
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Cached:    len(c.handles),
		Queries:   len(c.issued),
		Ambiguous: len(c.ambiguous),
	}
}

// covered reports whether pattern, or any broader pattern matching base,
// has been issued.
func (c *Cache) covered(pattern, base string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.issued[pattern]; ok {
		return true
	}
	for _, p := range testid.MatchingPatterns(base) {
		if _, ok := c.issued[p]; ok {
			return true
		}
	}
	return false
}

// issue runs one query under the retry policy and populates the cache. It
// is called under the singleflight group for pattern.
func (c *Cache) issue(ctx context.Context, pattern string) error {
	if c.Issued(pattern) {
		return nil
	}

	var matches []backend.TestCase
	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		var qerr error
		matches, qerr = c.querier.QueryTestCases(ctx, backend.Query{Pattern: pattern})
		return qerr
	})
	if err != nil {
		return fmt.Errorf("query %q: %w", pattern, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[pattern] = struct{}{}
	for _, tc := range matches {
		c.insertLocked(testid.FromRecord(tc.ExternalID, tc.Title), tc.RecordID)
	}
	logging.Debug("LookupCache", "Pattern %s matched %d records", pattern, len(matches))
	return nil
}

func (c *Cache) insertLocked(canonical string, h backend.Handle) {
	if _, ok := c.ambiguous[canonical]; ok {
		return
	}
	existing, ok := c.handles[canonical]
	if !ok {
		c.handles[canonical] = h
		return
	}
	if existing == h {
		return
	}
	delete(c.handles, canonical)
	c.ambiguous[canonical] = struct{}{}
	logging.Warn("LookupCache", "Duplicate test case id %s (%s, %s); leaving it unresolved", canonical, existing, h)
}
