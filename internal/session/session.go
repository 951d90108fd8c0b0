// Package session is the streaming session manager of the playground: it
// owns the conversation log and status, delivers user messages through the
// retry policy, and folds the backend's frames into display-ready state.
//
// A Session runs one goroutine that drains the connection's events in
// arrival order. All state lives behind one mutex; observers read it with
// Snapshot after a signal on Updates.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/llm-playground/llm-playground/internal/conn"
	"github.com/llm-playground/llm-playground/internal/frame"
	"github.com/llm-playground/llm-playground/internal/metrics"
	"github.com/llm-playground/llm-playground/internal/retry"
)

var (
	// ErrBusy is returned when a turn is still awaiting its reply.
	ErrBusy = errors.New("session is awaiting a reply")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session is closed")
)

// Transport is the connection a session drives. *conn.Supervisor satisfies it.
type Transport interface {
	retry.Transport
	Events() <-chan conn.Event
	Generation() uint64
	Close() error
}

// State is a point-in-time copy of a session.
type State struct {
	Turns      Conversation
	Status     Status
	Failure    *Failure // last failure; kept until the next submit
	Streaming  bool     // externally selected mode for the next turn
	Delivering bool     // the retry policy is still trying to send
}

// Option configures a Session.
type Option func(*Session)

// WithPolicy replaces the default retry policy.
func WithPolicy(p *retry.Policy) Option {
	return func(s *Session) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithStreaming sets the initial streaming mode. The default is true.
func WithStreaming(on bool) Option {
	return func(s *Session) { s.state.Streaming = on }
}

// Session owns one conversation with the backend.
type Session struct {
	id        string
	transport Transport
	policy    *retry.Policy
	logger    *zap.Logger
	recorder  *metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	updates chan struct{}

	mu            sync.RWMutex
	state         State
	asm           assembler
	turnStreaming bool
	closed        bool
}

// New starts a session over t. The connection is opened lazily by the first
// Submit.
func New(t Transport, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		transport: t,
		logger:    zap.NewNop(),
		updates:   make(chan struct{}, 1),
		asm:       newAssembler(),
		state:     State{Status: StatusIdle, Streaming: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		s.policy = retry.New(retry.WithLogger(s.logger))
	}
	s.logger = s.logger.With(zap.String("component", "session"), zap.String("session_id", s.id))
	s.turnStreaming = s.state.Streaming
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.run()
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Updates signals after every state change. Signals coalesce; read the
// state with Snapshot. The channel is closed by Close.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Turns = s.state.Turns.Clone()
	return st
}

// Streaming returns the mode the next turn will use.
func (s *Session) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Streaming
}

// SetStreaming selects the mode for subsequent turns. A turn already in
// flight finishes in the mode it started with.
func (s *Session) SetStreaming(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.Streaming == on {
		return
	}
	s.state.Streaming = on
	s.logger.Info("streaming mode changed", zap.Bool("streaming", on))
	s.notify()
}

// Submit appends a user turn and delivers text to the backend. Blank text
// is ignored. The user turn is in the log before any network activity.
func (s *Session) Submit(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state.Status.Awaiting() || s.state.Delivering {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state.Turns = append(s.state.Turns, Turn{Role: RoleUser, Content: text})
	s.state.Failure = nil
	s.state.Status = StatusThinking
	s.turnStreaming = s.state.Streaming
	s.asm.begin()
	s.state.Delivering = true
	streaming := s.turnStreaming
	s.recorder.Turn(string(RoleUser))
	s.notify()
	s.mu.Unlock()

	s.logger.Debug("submitting message", zap.Int("length", len(text)), zap.Bool("streaming", streaming))

	s.wg.Add(1)
	go s.deliver(text)
	return nil
}

func (s *Session) deliver(text string) {
	defer s.wg.Done()
	err := s.policy.Deliver(s.ctx, s.transport, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state.Delivering = false
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		s.notify()
	case errors.Is(err, retry.ErrRetriesExhausted):
		s.failLocked(exhaustedFailure(s.policy.MaxAttempts()))
	default:
		s.logger.Error("send failed", zap.Error(err))
		s.failLocked(&Failure{Kind: FailureSendUnavailable, Message: SendUnavailableMessage})
	}
}

// Reset clears the conversation. It fails with ErrBusy while a reply is
// pending.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state.Status.Awaiting() || s.state.Delivering {
		return ErrBusy
	}
	s.state.Turns = nil
	s.state.Failure = nil
	s.state.Status = StatusIdle
	s.asm.begin()
	s.notify()
	return nil
}

// Close tears the session down and closes the connection. Events and
// delivery results arriving afterwards are discarded.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.updates)
	s.mu.Unlock()

	s.cancel()
	err := s.transport.Close()
	s.wg.Wait()
	s.logger.Debug("session closed")
	return err
}

func (s *Session) run() {
	defer s.wg.Done()
	events := s.transport.Events()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-events:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev conn.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	// A replaced handle may still deliver one event after Connect.
	if latest := s.transport.Generation(); ev.Generation < latest {
		s.logger.Debug("dropping event from replaced connection",
			zap.String("type", ev.Type.String()),
			zap.Uint64("generation", ev.Generation),
			zap.Uint64("latest", latest))
		return
	}

	switch ev.Type {
	case conn.EventOpened:
		s.logger.Debug("connection opened", zap.Uint64("generation", ev.Generation))
	case conn.EventFrame:
		s.foldLocked(ev.Data)
	case conn.EventTransportError:
		s.failLocked(transportFailure(ev.Detail()))
	case conn.EventClosed:
		s.failLocked(&Failure{Kind: FailureTransport, Message: ConnectionClosedMessage})
	}
}

func (s *Session) foldLocked(raw []byte) {
	f := frame.Interpret(raw, s.turnStreaming)
	s.recorder.Frame(f.Kind.String())

	before := len(s.state.Turns)
	if s.asm.fold(&s.state, f, s.turnStreaming) {
		s.turnStreaming = s.state.Streaming
	}
	if len(s.state.Turns) > before {
		s.recorder.Turn(string(RoleAssistant))
	}
	if f.IsFailure() {
		s.recorder.Failure(s.state.Failure.Kind.String())
		s.logger.Warn("backend reported failure", zap.String("kind", f.Kind.String()), zap.String("message", f.Text))
	}
	s.notify()
}

func (s *Session) failLocked(f *Failure) {
	s.state.Status = StatusErrored
	s.state.Failure = f
	s.asm.begin()
	s.recorder.Failure(f.Kind.String())
	s.logger.Warn("session errored", zap.String("kind", f.Kind.String()), zap.String("message", f.Message))
	s.notify()
}

// notify must be called with mu held and the session open.
func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
