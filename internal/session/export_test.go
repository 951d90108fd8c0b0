package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExportToMarkdown(t *testing.T) {
	turns := Conversation{
		{Role: RoleUser, Content: "What is Go?"},
		{Role: RoleAssistant, Content: "A programming language."},
	}
	fixed := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	md := ExportToMarkdown("3f2a9c1e-aaaa-bbbb-cccc-000000000000", turns, ExportOptions{
		Mode:      "completions",
		Endpoint:  "localhost:8000/completions",
		Streaming: true,
		Params:    map[string]string{"top_k": "50", "temperature": "0.7"},
		Now:       func() time.Time { return fixed },
	})

	assert.True(t, strings.HasPrefix(md, "# Session: 3f2a9c1e\n\n"))
	assert.Contains(t, md, "| **Mode** | completions |")
	assert.Contains(t, md, "| **Endpoint** | `localhost:8000/completions` |")
	assert.Contains(t, md, "| **Exported** | 2024-01-15 14:30 UTC |")
	assert.Contains(t, md, "1 user / 1 assistant turns")
	assert.Less(t, strings.Index(md, "| temperature |"), strings.Index(md, "| top_k |"))
	assert.Less(t, strings.Index(md, "### User\n\nWhat is Go?"), strings.Index(md, "### Assistant\n\nA programming language."))
}

func TestExportDefaultsAndEscaping(t *testing.T) {
	md := ExportToMarkdown("plain", nil, ExportOptions{Endpoint: "a|b"})
	assert.Contains(t, md, "| **Mode** | chat |")
	assert.Contains(t, md, "`a\\|b`")
	assert.Contains(t, md, "0 user / 0 assistant turns")
	assert.NotContains(t, md, "| Parameter |")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "3f2a9c1e", ShortID("3f2a9c1e-1111-2222"))
	assert.Equal(t, "abc", ShortID("abc"))
}
