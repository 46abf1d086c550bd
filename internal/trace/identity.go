package trace

import (
	"fmt"
	"strings"
)

// subjectMaxLen keeps subjects inside the issues.subject varchar(255) column.
const subjectMaxLen = 255

// railsRootToken is the placeholder Rails notifiers substitute for the
// application root in backtrace lines.
const railsRootToken = "[RAILS_ROOT]"

// methodMarker separates the file:line reference from the method name in a
// backtrace frame ("app/models/x.rb:5:in 'call'").
const methodMarker = ":in"

// Identity is the deduplication key and human-readable description derived
// from one report. Reports with the same Subject land on the same issue.
type Identity struct {
	Subject     string
	Description string
}

// Build derives the identity from a filtered backtrace, falling back to the
// error message when no usable frame survives filtering. repoRoot is the
// project's repository-root setting, used only for the description's source
// link.
//
// Subject computation is deterministic: identical (errorClass, first frame)
// or (errorClass, first message line) inputs always yield identical subjects.
func Build(errorClass, errorMessage string, filtered []string, repoRoot string) Identity {
	if len(filtered) == 0 {
		return Identity{
			Subject:     truncate(fmt.Sprintf("[%s] %s", errorClass, firstLine(errorMessage)), subjectMaxLen),
			Description: errorMessage,
		}
	}

	ref := normalizeFrame(filtered[0])
	return Identity{
		Subject:     truncate(fmt.Sprintf("%s in %s", errorClass, ref), subjectMaxLen),
		Description: describeSource(ref, repoRoot),
	}
}

// normalizeFrame strips the method suffix and the root-path placeholder from
// a backtrace frame, leaving the file:line reference.
func normalizeFrame(frame string) string {
	ref, _, _ := strings.Cut(frame, methodMarker)
	return strings.ReplaceAll(ref, railsRootToken, "")
}

// describeSource renders the issue description with a link into the source
// repository: <root>/<path>#L<line>.
func describeSource(ref, repoRoot string) string {
	root := strings.TrimSuffix(repoRoot, "/")
	path := strings.TrimPrefix(ref, "/")

	file, line, ok := strings.Cut(path, ":")
	link := root + "/" + file
	if ok && line != "" {
		link += "#L" + line
	}
	return fmt.Sprintf("BugRelay reported an error related to source:%s", link)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// truncate shortens s to at most max characters without splitting runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
