package playground

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-playground/llm-playground/internal/params"
	"github.com/llm-playground/llm-playground/internal/session"
	"github.com/llm-playground/llm-playground/internal/ui"
)

type fakeSession struct {
	mu        sync.Mutex
	state     session.State
	submitted []string
	resets    int
	updates   chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		state:   session.State{Status: session.StatusIdle, Streaming: true},
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeSession) Submit(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Status.Awaiting() {
		return session.ErrBusy
	}
	f.submitted = append(f.submitted, text)
	f.state.Turns = append(f.state.Turns, session.Turn{Role: session.RoleUser, Content: text})
	f.state.Status = session.StatusThinking
	return nil
}

func (f *fakeSession) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state
	st.Turns = f.state.Turns.Clone()
	return st
}

func (f *fakeSession) ID() string               { return "5e1d07aa-0000-0000-0000-000000000000" }
func (f *fakeSession) Updates() <-chan struct{} { return f.updates }

func (f *fakeSession) SetStreaming(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Streaming = on
}

func (f *fakeSession) Streaming() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Streaming
}

func (f *fakeSession) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Status.Awaiting() {
		return session.ErrBusy
	}
	f.resets++
	f.state.Turns = nil
	return nil
}

func (f *fakeSession) set(fn func(*session.State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.state)
}

type recordingSink struct {
	sets []string
	vals []float64
}

func (r *recordingSink) Set(p params.Param, v float64) {
	r.sets = append(r.sets, p.Name)
	r.vals = append(r.vals, v)
}

type fakeToggler struct {
	calls []bool
	err   error
}

func (f *fakeToggler) SetStreaming(_ context.Context, on bool) error {
	f.calls = append(f.calls, on)
	return f.err
}

func newTestModel(mode Mode) (*Model, *fakeSession, *recordingSink, *fakeToggler) {
	sess := newFakeSession()
	sink := &recordingSink{}
	tog := &fakeToggler{}
	m := New(Options{
		Session: sess,
		Mode:    mode,
		Params:  sink,
		Toggler: tog,
		Styles:  ui.NewStyles(&bytes.Buffer{}),
	})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, sess, sink, tog
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEnterSubmitsAndClearsInput(t *testing.T) {
	m, sess, _, _ := newTestModel(ModeChat)
	m.textarea.SetValue("hello there")

	_, cmd := m.handleKeyMsg(key("enter"))

	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"hello there"}, sess.submitted)
	assert.Empty(t, m.textarea.Value())
	assert.Contains(t, m.View(), thinkingText)
	assert.False(t, m.textarea.Focused(), "input is disabled while awaiting")
}

func TestBlankInputIsNotSubmitted(t *testing.T) {
	m, sess, _, _ := newTestModel(ModeChat)
	m.textarea.SetValue("   ")

	_, cmd := m.handleKeyMsg(key("enter"))

	assert.Nil(t, cmd)
	assert.Empty(t, sess.submitted)
}

func TestTypingIgnoredWhileAwaiting(t *testing.T) {
	m, sess, _, _ := newTestModel(ModeChat)
	m.textarea.SetValue("first")
	m.handleKeyMsg(key("enter"))

	m.handleKeyMsg(key("x"))
	m.handleKeyMsg(key("enter"))

	assert.Empty(t, m.textarea.Value())
	assert.Equal(t, []string{"first"}, sess.submitted)
}

func TestUpdateRendersTurnsAndErrors(t *testing.T) {
	m, sess, _, _ := newTestModel(ModeChat)
	sess.set(func(st *session.State) {
		st.Turns = session.Conversation{
			{Role: session.RoleUser, Content: "ping"},
			{Role: session.RoleAssistant, Content: "pong"},
		}
		st.Status = session.StatusErrored
		st.Failure = &session.Failure{Kind: session.FailureTransport, Message: session.ConnectionClosedMessage}
	})

	_, cmd := m.Update(updateMsg{})

	assert.NotNil(t, cmd, "keeps listening for updates")
	view := m.View()
	assert.Contains(t, view, "ping")
	assert.Contains(t, view, "pong")
	assert.Contains(t, view, session.ConnectionClosedMessage)
	assert.True(t, m.textarea.Focused(), "input is re-enabled after an error")
}

func TestCompletionsModeShowsLastExchangeOnly(t *testing.T) {
	m, sess, _, _ := newTestModel(ModeCompletions)
	sess.set(func(st *session.State) {
		st.Turns = session.Conversation{
			{Role: session.RoleUser, Content: "old question"},
			{Role: session.RoleAssistant, Content: "old answer"},
			{Role: session.RoleUser, Content: "new question"},
			{Role: session.RoleAssistant, Content: "new answer"},
		}
	})
	m.Update(updateMsg{})

	content := m.renderConversation()
	assert.NotContains(t, content, "old question")
	assert.Contains(t, content, "new answer")
}

func TestClosedSessionQuits(t *testing.T) {
	m, _, _, _ := newTestModel(ModeChat)

	_, cmd := m.Update(closedMsg{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWaitForUpdate(t *testing.T) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	assert.Equal(t, updateMsg{}, waitForUpdate(ch)())

	close(ch)
	assert.Equal(t, closedMsg{}, waitForUpdate(ch)())
}

func TestToggleStreamingNotifiesBackend(t *testing.T) {
	m, sess, _, tog := newTestModel(ModeChat)

	_, cmd := m.handleKeyMsg(key("ctrl+t"))
	require.NotNil(t, cmd)
	msg := cmd()

	assert.False(t, sess.Streaming())
	assert.Equal(t, []bool{false}, tog.calls)
	assert.Equal(t, toggledMsg{on: false}, msg)
}

func TestToggleFailureShowsNotice(t *testing.T) {
	m, _, _, tog := newTestModel(ModeChat)
	tog.err = errors.New("500")

	_, cmd := m.handleKeyMsg(key("ctrl+t"))
	m.Update(cmd())

	assert.Contains(t, m.View(), "Failed to set streaming mode")
}

func TestSidebarAdjustsParameters(t *testing.T) {
	m, _, sink, _ := newTestModel(ModeChat)

	m.handleKeyMsg(key("tab"))
	assert.Equal(t, focusSidebar, m.focus)

	m.handleKeyMsg(key("left"))
	m.handleKeyMsg(key("down"))
	m.handleKeyMsg(key("down"))
	m.handleKeyMsg(key("right"))
	m.handleKeyMsg(key("right"))

	assert.Equal(t, []string{"temperature", "top_k", "top_k"}, sink.sets)
	assert.InDelta(t, 0.9, m.values["temperature"], 1e-9)
	assert.Equal(t, 52.0, m.values["top_k"])

	m.handleKeyMsg(key("up"))
	m.handleKeyMsg(key("right"))
	assert.Len(t, sink.sets, 3, "top_p already at max is not resent")

	m.handleKeyMsg(key("tab"))
	assert.Equal(t, focusInput, m.focus)
	assert.True(t, m.textarea.Focused())
}

func TestClearConversation(t *testing.T) {
	m, sess, _, _ := newTestModel(ModeChat)
	sess.set(func(st *session.State) {
		st.Turns = session.Conversation{{Role: session.RoleUser, Content: "hi"}}
	})

	m.handleKeyMsg(key("ctrl+l"))
	assert.Equal(t, 1, sess.resets)
	assert.Empty(t, m.state.Turns)

	sess.set(func(st *session.State) { st.Status = session.StatusThinking })
	m.handleKeyMsg(key("ctrl+l"))
	assert.Equal(t, 1, sess.resets)
	assert.Contains(t, m.View(), "Cannot clear")
}

func TestEscQuits(t *testing.T) {
	m, _, _, _ := newTestModel(ModeChat)
	_, cmd := m.handleKeyMsg(key("esc"))

	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestSaveTranscript(t *testing.T) {
	m, sess, _, _ := newTestModel(ModeChat)
	m.exportDir = t.TempDir()
	sess.set(func(st *session.State) {
		st.Turns = session.Conversation{
			{Role: session.RoleUser, Content: "hello"},
			{Role: session.RoleAssistant, Content: "hi there"},
		}
	})

	m.handleKeyMsg(key("ctrl+s"))

	path := filepath.Join(m.exportDir, "llm-playground-5e1d07aa.md")
	assert.Equal(t, "Saved transcript to "+path, m.notice)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### Assistant\n\nhi there")
	assert.Contains(t, string(data), "| temperature | 1.0 |")
}

func TestSaveTranscriptFailure(t *testing.T) {
	m, _, _, _ := newTestModel(ModeChat)
	m.exportDir = filepath.Join(t.TempDir(), "missing")

	m.handleKeyMsg(key("ctrl+s"))
	assert.Equal(t, "Failed to save transcript", m.notice)
}
