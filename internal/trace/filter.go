// Package trace filters noise frames out of backtraces and derives the
// deduplication identity (subject, description) of an error report.
package trace

import (
	"regexp"
	"strings"
)

// Built-in noise rules, compiled once at package init. They drop framework
// preamble lines such as "On line #12 of ..." and numbered console frames
// like "12: foo.rb in bar".
var builtinFilters = []*regexp.Regexp{
	regexp.MustCompile(`^On\sline\s#\d+\sof`),
	regexp.MustCompile(`^\d+:`),
}

var reFilterSep = regexp.MustCompile(`[,\s\n\r]+`)

// SplitFilterField splits a project's free-text backtrace-filter value into
// individual patterns. Separators are commas, whitespace, and newlines;
// empty fragments are dropped.
func SplitFilterField(raw string) []string {
	var patterns []string
	for _, p := range reFilterSep.Split(raw, -1) {
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Filter returns the subsequence of frames matching none of the built-in
// rules and containing none of the project patterns as a substring. Order is
// preserved. The result is empty (never nil) when every frame is dropped.
func Filter(backtrace []string, projectPatterns []string) []string {
	filtered := make([]string, 0, len(backtrace))
	for _, line := range backtrace {
		if !noisy(line, projectPatterns) {
			filtered = append(filtered, line)
		}
	}
	return filtered
}

func noisy(line string, projectPatterns []string) bool {
	for _, re := range builtinFilters {
		if re.MatchString(line) {
			return true
		}
	}
	for _, p := range projectPatterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}
