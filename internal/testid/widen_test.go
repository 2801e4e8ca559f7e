package testid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWiden(t *testing.T) {
	tests := []struct {
		name     string
		baseID   string
		level    int
		expected string
	}{
		{"level zero is exact", "a.b.c.d", 0, "a.b.c.d"},
		{"negative level is exact", "a.b.c.d", -1, "a.b.c.d"},
		{"level one drops last component", "a.b.c.d", 1, "a.b.c.*"},
		{"level two drops two components", "a.b.c.d", 2, "a.b.*"},
		{"floor of two components", "a.b.c.d", 10, "a.b.*"},
		{"three components at level one", "pkg.mod.test_a", 1, "pkg.mod.*"},
		{"two components stay exact", "a.b", 1, "a.b"},
		{"single component stays exact", "TestX", 3, "TestX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Widen(tt.baseID, tt.level))
		})
	}
}

func TestWiden_NeverBelowTwoComponents(t *testing.T) {
	ids := []string{"a.b", "a.b.c", "a.b.c.d.e.f"}
	for _, id := range ids {
		for level := 1; level < 8; level++ {
			p := Widen(id, level)
			components := strings.Split(strings.TrimSuffix(p, Wildcard), ".")
			assert.GreaterOrEqual(t, len(components), 2, "Widen(%q, %d) = %q", id, level, p)
			assert.True(t, Matches(p, id), "Widen(%q, %d) = %q must match the id itself", id, level, p)
		}
	}
}

func TestMatchingPatterns(t *testing.T) {
	assert.Equal(t, []string{"a.b.*", "a.b.c.*"}, MatchingPatterns("a.b.c.d"))
	assert.Equal(t, []string{"pkg.mod.*"}, MatchingPatterns("pkg.mod.test_a"))
	assert.Empty(t, MatchingPatterns("a.b"))
	assert.Empty(t, MatchingPatterns("a"))
}

func TestMatchingPatterns_ContainsEveryWidening(t *testing.T) {
	id := "a.b.c.d.e"
	patterns := MatchingPatterns(id)
	for level := 1; level < 6; level++ {
		assert.Contains(t, patterns, Widen(id, level))
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("a.b.*", "a.b.c"))
	assert.True(t, Matches("a.b.*", "a.b.c.d"))
	assert.False(t, Matches("a.b.*", "a.bc.d"))
	assert.True(t, Matches("a.b.c", "a.b.c"))
	assert.False(t, Matches("a.b.c", "a.b.c.d"))
	assert.Equal(t, "a.b.", PatternPrefix("a.b.*"))
}
