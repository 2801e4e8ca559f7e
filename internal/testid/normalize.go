package testid

import "strings"

const (
	// Wildcard is appended to widened patterns.
	Wildcard = ".*"

	// minPatternComponents is the number of leading components a widened
	// pattern never shrinks below.
	minPatternComponents = 2

	sourceExt = ".py"
)

// ID is the pair of identifiers derived from a node path.
type ID struct {
	// Canonical is the dotted identifier including any parameter suffix.
	Canonical string
	// Base is Canonical without its trailing "[...]" parameter suffix.
	Base string
}

// Param returns the parameter suffix of the canonical identifier ("[p1]"), or "".
func (id ID) Param() string {
	return strings.TrimPrefix(id.Canonical, id.Base)
}

// Normalizer turns runner node paths into identifiers. The zero value
// performs no namespace truncation.
type Normalizer struct {
	// BaseNamespace, when non-empty, truncates everything before its first
	// occurrence (for example "cfme.tests").
	BaseNamespace string
}

// Normalize derives the identifiers for nodePath using n's settings. The
// parameter suffix is kept verbatim so it compares equal to record titles.
func (n Normalizer) Normalize(nodePath string) ID {
	path, param := nodePath, ""
	if idx := strings.LastIndex(nodePath, "["); idx > 0 {
		path, param = nodePath[:idx], nodePath[idx:]
	}

	canonical := stripSourceExt(path)
	canonical = strings.ReplaceAll(canonical, "/", ".")
	canonical = strings.ReplaceAll(canonical, "::()", "")
	canonical = strings.ReplaceAll(canonical, "::", ".")
	canonical += param

	if n.BaseNamespace != "" {
		if idx := strings.Index(canonical, n.BaseNamespace); idx > 0 {
			canonical = canonical[idx:]
		}
	}

	return ID{Canonical: canonical, Base: StripParam(canonical)}
}

// stripSourceExt drops ".py" where it ends a path segment, that is before
// "::", "/" or the end of the path.
func stripSourceExt(path string) string {
	var b strings.Builder
	for {
		idx := strings.Index(path, sourceExt)
		if idx < 0 {
			b.WriteString(path)
			return b.String()
		}
		rest := path[idx+len(sourceExt):]
		b.WriteString(path[:idx])
		if rest != "" && !strings.HasPrefix(rest, "::") && !strings.HasPrefix(rest, "/") {
			b.WriteString(sourceExt)
		}
		path = rest
	}
}

// Normalize derives identifiers without namespace truncation.
func Normalize(nodePath string) ID {
	return Normalizer{}.Normalize(nodePath)
}

// StripParam removes the suffix starting at the last "[" when that bracket
// is not the first character.
func StripParam(s string) string {
	if idx := strings.LastIndex(s, "["); idx > 0 {
		return s[:idx]
	}
	return s
}

// ParamSuffix returns the suffix starting at the last "[" of title, or "".
// It is used to rebuild canonical identifiers from record titles.
func ParamSuffix(title string) string {
	if idx := strings.LastIndex(title, "["); idx > 0 {
		return title[idx:]
	}
	return ""
}

// FromRecord builds the canonical identifier of an external record from its
// test case id and title.
func FromRecord(externalID, title string) string {
	return externalID + ParamSuffix(title)
}
