package reconcile

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/bugrelay/internal/notice"
	"gopkg.in/yaml.v3"
)

// diagnosticNotes renders the full audit bundle for a backtrace report as a
// textile note: error message, filtered and full backtraces, and the opaque
// request/session/environment snapshots, each as a YAML block.
func diagnosticNotes(r *notice.Report, filtered []string) string {
	var b strings.Builder

	section(&b, "Error message", r.ErrorMessage)
	section(&b, "Filtered backtrace", yamlBlock(filtered))
	section(&b, "Full backtrace", yamlBlock(r.Backtrace))
	section(&b, "Request", yamlBlock(r.Request))
	section(&b, "Session", yamlBlock(r.Session))
	section(&b, "Environment", yamlBlock(r.Environment))

	return strings.TrimSuffix(b.String(), "\n\n")
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "h4. %s\n\n<pre>%s</pre>\n\n", title, body)
}

// yamlBlock renders v as YAML for display inside a <pre> block.
func yamlBlock(v any) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(string(out), "\n")
}
