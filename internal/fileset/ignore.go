package fileset

import (
	"path"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreMatcher evaluates glob ignore patterns against relative paths.
// Patterns match either the full slash-separated relative path or the base
// name, mirroring the base-name semantics of classic copytree ignores while
// still supporting ** path patterns.
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher combines the supplied pattern lists into one matcher.
func NewIgnoreMatcher(patternLists ...[]string) IgnoreMatcher {
	combinedPatterns := []string{}
	for _, patternList := range patternLists {
		combinedPatterns = append(combinedPatterns, patternList...)
	}
	return IgnoreMatcher{patterns: combinedPatterns}
}

// Matches reports whether the relative path is ignored. Patterns are
// validated at configuration load, so matching never has to report errors.
func (matcher IgnoreMatcher) Matches(relativePath string) bool {
	baseName := path.Base(relativePath)
	for _, ignorePattern := range matcher.patterns {
		if doublestar.MatchUnvalidated(ignorePattern, relativePath) {
			return true
		}
		if doublestar.MatchUnvalidated(ignorePattern, baseName) {
			return true
		}
	}
	return false
}
