package formatting

import "strings"

// truncate collapses whitespace and cuts s to max runes, marking the cut
// with "...".
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
