package tools

import (
	"fmt"
	"strings"

	"github.com/michaelbrown/sshmcp/internal/remote"
)

const noOutput = "(no output)"

// FormatResult renders a command result as a single text block: stdout,
// then a [STDERR] section, then an [Exit code: N] marker, separated by
// blank lines. Empty sections are omitted.
func FormatResult(res *remote.Result) string {
	var sections []string
	if res.Stdout != "" {
		sections = append(sections, res.Stdout)
	}
	if res.Stderr != "" {
		sections = append(sections, "[STDERR]\n"+res.Stderr)
	}
	if res.ExitCode != 0 {
		sections = append(sections, fmt.Sprintf("[Exit code: %d]", res.ExitCode))
	}

	if len(sections) == 0 {
		return noOutput
	}
	return strings.Join(sections, "\n\n")
}
