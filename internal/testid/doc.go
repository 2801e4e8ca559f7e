// Package testid derives stable identifiers for discovered tests and builds
// the match patterns used to look them up in the test-management system.
//
// A runner node path such as
//
//	tests/mod.py::Cls::test_x[p1]
//
// normalizes to the canonical identifier tests.mod.Cls.test_x[p1] and the
// base identifier tests.mod.Cls.test_x. The base identifier is what query
// patterns are generated from; final matching always uses the canonical form.
//
// Widen trades precision for fewer round trips: at level 1 the base
// identifier above becomes tests.mod.Cls.*, a single query that can resolve
// every sibling test of the class.
package testid
