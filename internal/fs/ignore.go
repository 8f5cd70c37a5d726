package fs

import (
	"path/filepath"
	"strings"
)

// IgnoreMatcher checks file basenames against a data source's ignore rules.
// A rule is one shell-glob pattern per line ('*', '?', '[seq]'), matched
// case-sensitively against the final path component only. Files whose name
// starts with '.' are always ignored, regardless of the rule list.
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher parses the newline-separated rule text of a data source.
// Blank lines are skipped.
func NewIgnoreMatcher(rules string) *IgnoreMatcher {
	var patterns []string
	for _, line := range strings.Split(rules, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// ShouldIgnore reports whether a file with the given basename is excluded
// from synchronization. Matching is a simple OR over the patterns.
func (m *IgnoreMatcher) ShouldIgnore(filename string) bool {
	if strings.HasPrefix(filename, ".") {
		return true
	}
	for _, p := range m.patterns {
		matched, err := filepath.Match(p, filename)
		if err != nil {
			// Bad pattern — skip rather than crash.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
