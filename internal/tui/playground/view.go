package playground

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/llm-playground/llm-playground/internal/params"
	"github.com/llm-playground/llm-playground/internal/session"
)

const thinkingText = "Assistant is thinking..."

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.statusLine(),
		m.styles.Input.Render(m.textarea.View()),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, main, m.renderSidebar())

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m *Model) renderHeader() string {
	title := m.styles.Title.Render("LLM Playground")
	info := fmt.Sprintf(" %s · streaming %s", m.mode, m.styles.FormatEnabled(m.state.Streaming))
	if m.endpoint != "" {
		info += m.styles.Muted.Render(" · " + m.endpoint)
	}
	return title + info
}

// renderConversation renders the turns visible in the current mode.
func (m *Model) renderConversation() string {
	turns := m.state.Turns
	if m.mode == ModeCompletions {
		turns = turns.LastExchange()
	}
	if len(turns) == 0 {
		return m.styles.Muted.Render("Send a message to start.")
	}

	wrap := m.viewport.Width - 4
	if wrap < 10 {
		wrap = 10
	}
	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		label := m.styles.UserLabel.Render("You")
		if t.Role == session.RoleAssistant {
			label = m.styles.AssistantLabel.Render("Assistant")
		}
		content := m.styles.Turn.Render(wordwrap.String(t.Content, wrap))
		blocks = append(blocks, label+"\n"+content)
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) statusLine() string {
	switch {
	case m.state.Status == session.StatusThinking:
		return m.spinner.View() + " " + m.styles.Thinking.Render(thinkingText)
	case m.state.Status == session.StatusErrored && m.state.Failure != nil:
		return m.styles.ErrorBox.Render(wordwrap.String(m.state.Failure.Message, m.viewport.Width-4))
	case m.notice != "":
		return m.styles.Muted.Render(m.notice)
	default:
		return ""
	}
}

func (m *Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Sampling"))
	b.WriteString("\n\n")
	for i, p := range params.Table {
		label := m.styles.ParamLabel.Render(p.Label)
		if m.focus == focusSidebar && i == m.selected {
			label = m.styles.ParamFocused.Render("› " + p.Label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(m.styles.ParamValue.Render(p.Format(m.values[p.Name])))
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("  [%s–%s]", p.Format(p.Min), p.Format(p.Max))))
		b.WriteString("\n\n")
	}
	return m.styles.Sidebar.Width(sidebarWidth).Render(b.String())
}

func (m *Model) renderFooter() string {
	help := "enter send · ctrl+j newline · tab settings · ctrl+t streaming · ctrl+s save · ctrl+l clear · esc quit"
	if m.focus == focusSidebar {
		help = "↑/↓ select · ←/→ adjust · tab back to input · esc quit"
	}
	return m.styles.Footer.Render(help)
}
