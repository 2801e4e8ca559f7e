package gotest

import (
	"strings"

	"polarsync/internal/runner"
)

const idSeparator = "::"

// ItemFor returns the item for a test of package pkg. Subtest names are
// folded into a parameter suffix.
func ItemFor(pkg, test string) runner.Item {
	name := test
	if i := strings.Index(test, "/"); i > 0 {
		name = test[:i] + "[" + test[i+1:] + "]"
	}
	id := pkg + idSeparator + name
	return runner.Item{ID: id, NodePath: id}
}

// SplitID returns the package and top-level test name of an item id.
func SplitID(id string) (pkg, test string) {
	i := strings.LastIndex(id, idSeparator)
	if i < 0 {
		return "", id
	}
	pkg, test = id[:i], id[i+len(idSeparator):]
	if j := strings.Index(test, "["); j > 0 {
		test = test[:j]
	}
	return pkg, test
}
