package remote

import (
	"fmt"
	"strings"
)

// QueryOptions shape the full-text query sent alongside each pattern.
type QueryOptions struct {
	Project  string
	Run      string
	Assignee string
	// Importance limits results to the listed importance keys.
	Importance []string
	// CollectBlocked also matches cases already recorded as blocked.
	CollectBlocked bool
	// CollectFailed also matches cases already recorded as failed.
	CollectFailed bool
}

// BuildQuery returns the test case query for pattern:
//
//	[assignee.id:X AND ][caseimportance.KEY:(a b) AND ]NOT status:inactive AND
//	caseautomation.KEY:automated AND ((TEST_RECORDS:("P/R",@null)[ OR ...]) AND pattern)
func BuildQuery(opts QueryOptions, pattern string) string {
	var b strings.Builder
	if opts.Assignee != "" {
		fmt.Fprintf(&b, "assignee.id:%s AND ", opts.Assignee)
	}
	if len(opts.Importance) > 0 {
		fmt.Fprintf(&b, "caseimportance.KEY:(%s) AND ", strings.Join(opts.Importance, " "))
	}

	records := fmt.Sprintf(`TEST_RECORDS:("%s/%s",`, opts.Project, opts.Run)
	clause := records + "@null)"
	if opts.CollectBlocked {
		clause += " OR " + records + `"blocked")`
	}
	if opts.CollectFailed {
		clause += " OR " + records + `"failed")`
	}

	fmt.Fprintf(&b, "NOT status:inactive AND caseautomation.KEY:automated AND ((%s) AND %s)", clause, pattern)
	return b.String()
}

// Admits reports whether a query built from opts matches a case whose run
// record holds result. An empty result always matches.
func (opts QueryOptions) Admits(result string) bool {
	switch result {
	case "":
		return true
	case "blocked":
		return opts.CollectBlocked
	case "failed":
		return opts.CollectFailed
	}
	return false
}
