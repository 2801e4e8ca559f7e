package testid

import "strings"

// Widen returns the match pattern for baseID at the given breadth level.
// Level 0 (or below) is the exact identifier. Each level drops one trailing
// component, never keeping fewer than two, and appends Wildcard. An
// identifier too short to drop anything stays exact, since "a.b.*" would
// not match "a.b" itself.
func Widen(baseID string, level int) string {
	if level <= 0 {
		return baseID
	}

	components := strings.Split(baseID, ".")
	keep := len(components) - level
	if keep < minPatternComponents {
		keep = minPatternComponents
	}
	if keep >= len(components) {
		return baseID
	}
	return strings.Join(components[:keep], ".") + Wildcard
}

// MatchingPatterns returns every wildcard pattern that would match baseID,
// from the two-component prefix up to the parent of the last component.
// A query already issued for any of them has covered baseID.
func MatchingPatterns(baseID string) []string {
	components := strings.Split(baseID, ".")
	if len(components) <= minPatternComponents {
		return nil
	}

	patterns := make([]string, 0, len(components)-minPatternComponents)
	for keep := minPatternComponents; keep < len(components); keep++ {
		patterns = append(patterns, strings.Join(components[:keep], ".")+Wildcard)
	}
	return patterns
}

// IsPattern reports whether p is a widened pattern rather than an exact identifier.
func IsPattern(p string) bool {
	return strings.HasSuffix(p, Wildcard)
}

// PatternPrefix returns the literal prefix of a widened pattern including the
// trailing dot ("pkg.mod." for "pkg.mod.*"), or p itself for exact identifiers.
func PatternPrefix(p string) string {
	if IsPattern(p) {
		return strings.TrimSuffix(p, "*")
	}
	return p
}

// Matches reports whether the external test case id satisfies pattern p.
func Matches(p, externalID string) bool {
	if !IsPattern(p) {
		return p == externalID
	}
	return strings.HasPrefix(externalID, PatternPrefix(p))
}
