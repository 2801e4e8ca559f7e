// Package lookup resolves canonical test identifiers into record handles
// while keeping the number of remote queries low.
//
// A query is issued for a widened pattern rather than the exact identifier,
// so one round trip can fill the cache for every sibling test. Each pattern
// is issued at most once per run, and a narrower lookup is skipped when a
// broader pattern covering it was already issued: its result is then known
// to be absent.
//
// Identifiers that map to more than one distinct handle are ambiguous. They
// are evicted, remembered, and never resolved for the rest of the run.
package lookup
