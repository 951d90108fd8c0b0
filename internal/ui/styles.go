package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared by the CLI output and the playground TUI
var (
	Green  = lipgloss.Color("10") // success, streaming on
	Red    = lipgloss.Color("9")  // errors
	Grey   = lipgloss.Color("8")  // muted text
	Blue   = lipgloss.Color("4")  // borders, assistant label
	Yellow = lipgloss.Color("11") // focused control
	White  = lipgloss.Color("15") // header text
)

// Status indicators
const (
	EnabledIcon  = "●"
	DisabledIcon = "○"
	SuccessIcon  = "✓"
	FailIcon     = "✗"
)

// Styles returns styled text helpers bound to a renderer
type Styles struct {
	renderer *lipgloss.Renderer

	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Bold    lipgloss.Style

	// Conversation
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Turn           lipgloss.Style
	ErrorBox       lipgloss.Style
	Thinking       lipgloss.Style

	// Settings sidebar
	Sidebar      lipgloss.Style
	ParamLabel   lipgloss.Style
	ParamFocused lipgloss.Style
	ParamValue   lipgloss.Style

	Input  lipgloss.Style
	Footer lipgloss.Style
}

// NewStyles creates a new Styles instance for the given output
func NewStyles(output io.Writer) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		renderer: r,

		Title:   r.NewStyle().Bold(true).Foreground(White),
		Muted:   r.NewStyle().Foreground(Grey),
		Success: r.NewStyle().Foreground(Green),
		Error:   r.NewStyle().Foreground(Red),
		Bold:    r.NewStyle().Bold(true),

		UserLabel:      r.NewStyle().Bold(true).Foreground(Green),
		AssistantLabel: r.NewStyle().Bold(true).Foreground(Blue),
		Turn:           r.NewStyle().PaddingLeft(2),
		ErrorBox: r.NewStyle().
			Foreground(Red).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Padding(0, 1),
		Thinking: r.NewStyle().Italic(true).Foreground(Grey),

		Sidebar: r.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(Blue).
			PaddingLeft(1),
		ParamLabel:   r.NewStyle().Foreground(Grey),
		ParamFocused: r.NewStyle().Bold(true).Foreground(Yellow),
		ParamValue:   r.NewStyle().Bold(true),

		Input: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Grey),
		Footer: r.NewStyle().Foreground(Grey),
	}
}

// DefaultStyles returns styles for stderr (default TUI output)
func DefaultStyles() *Styles {
	return NewStyles(os.Stderr)
}

// Renderer returns the renderer the styles are bound to.
func (s *Styles) Renderer() *lipgloss.Renderer {
	return s.renderer
}

// FormatEnabled returns a styled on/off indicator
func (s *Styles) FormatEnabled(enabled bool) string {
	if enabled {
		return s.Success.Render(EnabledIcon + " on")
	}
	return s.Muted.Render(DisabledIcon + " off")
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}

// Truncate shortens a string to maxLen runes with ellipsis
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
