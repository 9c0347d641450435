package audit

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExportMarkdown renders entries as a markdown document.
func ExportMarkdown(entries []Entry) string {
	var b strings.Builder

	b.WriteString("# Tool invocations\n\n")
	for _, e := range entries {
		status := "ok"
		if e.IsError {
			status = "error"
		}
		b.WriteString(fmt.Sprintf("## %s `%s`\n\n", e.StartedAt.Format("2006-01-02 15:04:05"), e.Tool))
		b.WriteString(fmt.Sprintf("- **ID:** %s\n", e.ID))
		b.WriteString(fmt.Sprintf("- **Status:** %s\n", status))
		b.WriteString(fmt.Sprintf("- **Duration:** %dms\n\n", e.DurationMS))
		if len(e.Arguments) > 0 {
			args, _ := json.MarshalIndent(e.Arguments, "", "  ")
			b.WriteString(fmt.Sprintf("```json\n%s\n```\n\n", string(args)))
		}
		b.WriteString(fmt.Sprintf("```\n%s\n```\n\n", e.Result))
	}

	return b.String()
}

// ExportJSON renders entries as formatted JSON.
func ExportJSON(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// ExportYAML renders entries as a YAML sequence.
func ExportYAML(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return yaml.Marshal(entries)
}
