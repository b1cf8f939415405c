package utils

import (
	"path/filepath"
	"regexp"
)

// PatternMatcher filters scanned paths. Patterns are tried both as globs
// against the base name and as regular expressions against the full path;
// strings that fail to compile as regexes still work as globs.
type PatternMatcher struct {
	includeGlobs []string
	includeRegex []*regexp.Regexp
	excludeGlobs []string
	excludeRegex []*regexp.Regexp
}

func NewPatternMatcher(includePatterns, excludePatterns []string) *PatternMatcher {
	return &PatternMatcher{
		includeGlobs: append([]string(nil), includePatterns...),
		includeRegex: compileRegex(includePatterns),
		excludeGlobs: append([]string(nil), excludePatterns...),
		excludeRegex: compileRegex(excludePatterns),
	}
}

// ShouldInclude applies includes first (empty include set means everything),
// then excludes. A nil matcher includes everything.
func (m *PatternMatcher) ShouldInclude(path string) bool {
	if m == nil {
		return true
	}
	if (len(m.includeGlobs) > 0 || len(m.includeRegex) > 0) && !m.matches(path, m.includeGlobs, m.includeRegex) {
		return false
	}
	if (len(m.excludeGlobs) > 0 || len(m.excludeRegex) > 0) && m.matches(path, m.excludeGlobs, m.excludeRegex) {
		return false
	}
	return true
}

func (m *PatternMatcher) matches(path string, globs []string, regexes []*regexp.Regexp) bool {
	for _, pattern := range globs {
		if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
			return true
		}
	}
	for _, re := range regexes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func compileRegex(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if re, err := regexp.Compile(pattern); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}
