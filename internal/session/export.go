package session

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExportOptions describes the playground a transcript came from.
type ExportOptions struct {
	Mode      string // "chat" or "completions"
	Endpoint  string
	Streaming bool
	Params    map[string]string // sampling parameter name to formatted value
	Now       func() time.Time
}

// escapeTableCell escapes special characters for markdown table cells.
func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// ShortID returns the first block of a session id for display.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// ExportToMarkdown renders a conversation as a markdown transcript.
func ExportToMarkdown(id string, turns Conversation, opts ExportOptions) string {
	var b strings.Builder
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	b.WriteString(fmt.Sprintf("# Session: %s\n\n", escapeTableCell(ShortID(id))))

	b.WriteString("## Setup\n\n")
	b.WriteString("| | |\n")
	b.WriteString("|---|---|\n")
	mode := opts.Mode
	if mode == "" {
		mode = "chat"
	}
	b.WriteString(fmt.Sprintf("| **Mode** | %s |\n", escapeTableCell(mode)))
	if opts.Endpoint != "" {
		b.WriteString(fmt.Sprintf("| **Endpoint** | `%s` |\n", escapeTableCell(opts.Endpoint)))
	}
	b.WriteString(fmt.Sprintf("| **Streaming** | %t |\n", opts.Streaming))
	b.WriteString(fmt.Sprintf("| **Exported** | %s |\n", now().UTC().Format("2006-01-02 15:04 UTC")))
	b.WriteString("\n")

	if len(opts.Params) > 0 {
		names := make([]string, 0, len(opts.Params))
		for name := range opts.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("| Parameter | Value |\n")
		b.WriteString("|-----------|-------|\n")
		for _, name := range names {
			b.WriteString(fmt.Sprintf("| %s | %s |\n", escapeTableCell(name), escapeTableCell(opts.Params[name])))
		}
		b.WriteString("\n")
	}

	var users, assistants int
	for _, t := range turns {
		if t.Role == RoleUser {
			users++
		} else {
			assistants++
		}
	}
	b.WriteString(fmt.Sprintf("%d user / %d assistant turns\n\n", users, assistants))
	b.WriteString("---\n\n")

	b.WriteString("## Conversation\n\n")
	for _, t := range turns {
		if t.Role == RoleUser {
			b.WriteString("### User\n\n")
		} else {
			b.WriteString("### Assistant\n\n")
		}
		b.WriteString(t.Content)
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}
