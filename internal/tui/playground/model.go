// Package playground is the interactive terminal front end: a conversation
// view fed by a session, an input box, and the sampling-parameter sidebar.
package playground

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/llm-playground/llm-playground/internal/params"
	"github.com/llm-playground/llm-playground/internal/session"
	"github.com/llm-playground/llm-playground/internal/ui"
)

// Mode selects how much of the conversation is shown.
type Mode int

const (
	// ModeChat shows the whole conversation.
	ModeChat Mode = iota
	// ModeCompletions shows only the latest exchange.
	ModeCompletions
)

func (m Mode) String() string {
	if m == ModeCompletions {
		return "completions"
	}
	return "chat"
}

// Session is the part of *session.Session the UI drives.
type Session interface {
	ID() string
	Submit(text string) error
	Snapshot() session.State
	Updates() <-chan struct{}
	SetStreaming(on bool)
	Streaming() bool
	Reset() error
}

// ParamSink receives sidebar changes. *params.Pusher satisfies it.
type ParamSink interface {
	Set(p params.Param, value float64)
}

// StreamToggler tells the backend about streaming mode. *params.Client
// satisfies it.
type StreamToggler interface {
	SetStreaming(ctx context.Context, on bool) error
}

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const (
	sidebarWidth  = 34
	inputHeight   = 3
	toggleTimeout = 5 * time.Second
)

// Options wires the model's collaborators. Only Session is required.
type Options struct {
	Session  Session
	Mode     Mode
	Params   ParamSink
	Toggler  StreamToggler
	Styles   *ui.Styles
	Logger   *zap.Logger
	Endpoint string

	// ExportDir receives transcripts saved with ctrl+s. Empty means the
	// working directory.
	ExportDir string
}

// Model is the bubbletea model of the playground.
type Model struct {
	sess      Session
	mode      Mode
	sink      ParamSink
	toggler   StreamToggler
	styles    *ui.Styles
	logger    *zap.Logger
	endpoint  string
	exportDir string

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	state    session.State
	values   params.Values
	focus    focusArea
	selected int
	notice   string

	width    int
	height   int
	quitting bool
}

// updateMsg means the session state changed.
type updateMsg struct{}

// closedMsg means the session was torn down.
type closedMsg struct{}

// toggledMsg reports the backend's answer to a streaming toggle.
type toggledMsg struct {
	on  bool
	err error
}

// New creates a model. Call Init through tea.NewProgram.
func New(opts Options) *Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetKeys("ctrl+j")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := opts.Styles
	if styles == nil {
		styles = ui.DefaultStyles()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Model{
		sess:      opts.Session,
		mode:      opts.Mode,
		sink:      opts.Params,
		toggler:   opts.Toggler,
		styles:    styles,
		logger:    logger.With(zap.String("component", "tui")),
		endpoint:  opts.Endpoint,
		exportDir: opts.ExportDir,
		viewport:  viewport.New(80, 20),
		textarea:  ta,
		spinner:   sp,
		values:    params.Defaults(),
		state:     opts.Session.Snapshot(),
	}
	m.layout(80, 24)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, waitForUpdate(m.sess.Updates()))
}

// waitForUpdate blocks on the session's update channel.
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return closedMsg{}
		}
		return updateMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case updateMsg:
		m.refresh()
		return m, waitForUpdate(m.sess.Updates())

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case toggledMsg:
		if msg.err != nil {
			m.logger.Error("Failed to set streaming mode", zap.Bool("stream", msg.on), zap.Error(msg.err))
			m.notice = "Failed to set streaming mode on backend"
		}
		return m, nil
	}

	if m.focus == focusInput && !m.state.Status.Awaiting() {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.toggleFocus()
		return m, nil
	case "ctrl+t":
		return m, m.toggleStreaming()
	case "ctrl+s":
		path, err := m.exportTranscript()
		if err != nil {
			m.logger.Error("Failed to save transcript", zap.Error(err))
			m.notice = "Failed to save transcript"
		} else {
			m.notice = "Saved transcript to " + path
		}
		return m, nil
	case "ctrl+l":
		if err := m.sess.Reset(); err != nil {
			m.notice = "Cannot clear while a reply is pending"
		} else {
			m.notice = ""
			m.refresh()
		}
		return m, nil
	}

	if m.focus == focusSidebar {
		m.handleSidebarKey(msg)
		return m, nil
	}

	if msg.String() == "enter" {
		return m, m.submit()
	}
	if m.state.Status.Awaiting() {
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	text := m.textarea.Value()
	if strings.TrimSpace(text) == "" || m.state.Status.Awaiting() {
		return nil
	}
	if err := m.sess.Submit(text); err != nil {
		if errors.Is(err, session.ErrBusy) {
			m.notice = "Waiting for the assistant..."
			return nil
		}
		m.notice = err.Error()
		return nil
	}
	m.notice = ""
	m.textarea.Reset()
	m.refresh()
	return m.spinner.Tick
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusSidebar
		m.textarea.Blur()
		return
	}
	m.focus = focusInput
	if !m.state.Status.Awaiting() {
		m.textarea.Focus()
	}
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(params.Table)-1 {
			m.selected++
		}
	case "left", "h":
		m.nudge(-1)
	case "right", "l":
		m.nudge(1)
	case "shift+left", "H":
		m.nudge(-10)
	case "shift+right", "L":
		m.nudge(10)
	}
}

func (m *Model) nudge(steps int) {
	p := params.Table[m.selected]
	next := p.Nudge(m.values[p.Name], steps)
	if next == m.values[p.Name] {
		return
	}
	m.values[p.Name] = next
	if m.sink != nil {
		m.sink.Set(p, next)
	}
}

func (m *Model) toggleStreaming() tea.Cmd {
	on := !m.sess.Streaming()
	m.sess.SetStreaming(on)
	m.refresh()
	if m.toggler == nil {
		return nil
	}
	toggler := m.toggler
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), toggleTimeout)
		defer cancel()
		return toggledMsg{on: on, err: toggler.SetStreaming(ctx, on)}
	}
}

// exportTranscript writes the conversation as markdown and returns the path.
func (m *Model) exportTranscript() (string, error) {
	state := m.sess.Snapshot()
	values := make(map[string]string, len(params.Table))
	for _, p := range params.Table {
		values[p.Name] = p.Format(m.values[p.Name])
	}
	id := m.sess.ID()
	md := session.ExportToMarkdown(id, state.Turns, session.ExportOptions{
		Mode:      m.mode.String(),
		Endpoint:  m.endpoint,
		Streaming: state.Streaming,
		Params:    values,
	})

	dir := m.exportDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("llm-playground-%s.md", session.ShortID(id)))
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// refresh pulls a new snapshot and re-renders the conversation.
func (m *Model) refresh() {
	m.state = m.sess.Snapshot()
	if m.state.Status.Awaiting() {
		m.textarea.Blur()
	} else if m.focus == focusInput && !m.textarea.Focused() {
		m.textarea.Focus()
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m *Model) layout(width, height int) {
	m.width, m.height = width, height
	mainWidth := width - sidebarWidth - 1
	if mainWidth < 20 {
		mainWidth = 20
	}
	vpHeight := height - inputHeight - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = mainWidth
	m.viewport.Height = vpHeight
	m.textarea.SetWidth(mainWidth - 2)
	m.viewport.SetContent(m.renderConversation())
}
