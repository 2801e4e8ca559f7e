package lookup

// Auto selects the query breadth from the number of collected items.
const Auto = -1

// Threshold maps an item count to a breadth level. It applies when the item
// count is strictly greater than MoreThan.
type Threshold struct {
	MoreThan int
	Level    int
}

// BreadthPolicy picks a breadth level for Auto. Thresholds are checked in
// order; the first match wins and no match means exact lookups.
type BreadthPolicy struct {
	// Scoped applies when the query is limited to an assignee, which keeps
	// each result set small enough to widen further.
	Scoped []Threshold
	// Unscoped applies otherwise.
	Unscoped []Threshold
}

// DefaultBreadth is the policy used by BreadthLevel.
var DefaultBreadth = BreadthPolicy{
	Scoped:   []Threshold{{MoreThan: 10, Level: 2}, {MoreThan: 5, Level: 1}},
	Unscoped: []Threshold{{MoreThan: 10, Level: 1}},
}

// Level returns configured when it is not negative, otherwise the level the
// policy assigns to itemCount.
func (p BreadthPolicy) Level(configured, itemCount int, assigneeScoped bool) int {
	if configured >= 0 {
		return configured
	}
	table := p.Unscoped
	if assigneeScoped {
		table = p.Scoped
	}
	for _, t := range table {
		if itemCount > t.MoreThan {
			return t.Level
		}
	}
	return 0
}

// BreadthLevel applies DefaultBreadth.
func BreadthLevel(configured, itemCount int, assigneeScoped bool) int {
	return DefaultBreadth.Level(configured, itemCount, assigneeScoped)
}
