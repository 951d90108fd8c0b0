// Package conn supervises the single websocket connection a playground
// session holds to the inference backend.
//
// The Supervisor knows nothing about message semantics. It opens, replaces
// and closes the handle, sends raw text, and publishes lifecycle and frame
// events on one ordered channel.
package conn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotOpen is returned by Send when no open handle exists.
var ErrNotOpen = errors.New("connection is not open")

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// State is the lifecycle state of the current handle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultEventBuffer      = 64
	closeGracePeriod        = time.Second
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithDialer replaces the default gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(s *Supervisor) { s.dialer = d }
}

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEventBuffer sets the capacity of the event channel.
func WithEventBuffer(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// Supervisor owns at most one websocket handle at a time.
type Supervisor struct {
	url        string
	dialer     Dialer
	logger     *zap.Logger
	bufferSize int

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	generation uint64
	closed     bool

	writeMu sync.Mutex
}

// New creates a Supervisor for the websocket URL. No connection is opened
// until Connect is called.
func New(url string, opts ...Option) *Supervisor {
	s := &Supervisor{
		url:        url,
		dialer:     &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		logger:     zap.NewNop(),
		bufferSize: defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "conn"), zap.String("url", url))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.events = make(chan Event, s.bufferSize)
	return s
}

// URL returns the endpoint this supervisor dials.
func (s *Supervisor) URL() string {
	return s.url
}

// Events returns the ordered event channel. It is never closed; consumers
// stop reading on teardown.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// State returns the state of the current handle.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation returns the generation of the latest Connect. Events tagged
// with an older generation belong to a replaced handle.
func (s *Supervisor) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Ready reports whether Send would currently be attempted.
func (s *Supervisor) Ready() bool {
	return s.State() == StateOpen
}

// Connect starts opening a new connection, replacing the current handle.
// It returns immediately; an Opened event follows once the handshake completes.
func (s *Supervisor) Connect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	old := s.conn
	s.conn = nil
	s.state = StateConnecting
	s.mu.Unlock()

	if old != nil {
		s.logger.Debug("replacing connection", zap.Uint64("generation", gen))
		_ = old.Close()
	}

	go s.dial(gen)
}

func (s *Supervisor) dial(gen uint64) {
	s.logger.Debug("dialing", zap.Uint64("generation", gen))
	c, _, err := s.dialer.DialContext(s.ctx, s.url, nil)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		if c != nil {
			_ = c.Close()
		}
		return
	}
	if err != nil {
		s.state = StateClosed
		s.mu.Unlock()
		s.logger.Warn("dial failed", zap.Uint64("generation", gen), zap.Error(err))
		return
	}
	s.conn = c
	s.state = StateOpen
	s.mu.Unlock()

	s.logger.Info("websocket connected", zap.Uint64("generation", gen))
	s.emit(gen, Event{Type: EventOpened})
	go s.readLoop(gen, c)
}

func (s *Supervisor) readLoop(gen uint64, c *websocket.Conn) {
	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			s.handleReadError(gen, c, err)
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		s.emit(gen, Event{Type: EventFrame, Data: data})
	}
}

func (s *Supervisor) handleReadError(gen uint64, c *websocket.Conn, err error) {
	s.mu.Lock()
	current := !s.closed && gen == s.generation && s.conn == c
	if current {
		s.conn = nil
		s.state = StateClosed
	}
	s.mu.Unlock()
	_ = c.Close()

	if !current {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Warn("websocket closed by backend", zap.Error(err))
	} else {
		s.logger.Error("websocket read failed", zap.Error(err))
		s.emit(gen, Event{Type: EventTransportError, Err: err})
	}
	s.emit(gen, Event{Type: EventClosed, Err: err})
}

// emit publishes ev unless the handle it belongs to was superseded or the
// supervisor was torn down.
func (s *Supervisor) emit(gen uint64, ev Event) {
	s.mu.Lock()
	stale := s.closed || gen != s.generation
	s.mu.Unlock()
	if stale {
		return
	}

	ev.Generation = gen
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// Send writes text as a single websocket text message. It fails with
// ErrNotOpen instead of queueing when the handle is not open.
func (s *Supervisor) Send(text string) error {
	s.mu.Lock()
	c, state := s.conn, s.state
	s.mu.Unlock()
	if c == nil || state != StateOpen {
		return ErrNotOpen
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := c.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotOpen, err)
	}
	return nil
}

// Close tears the supervisor down. The current handle is closed with a
// normal-closure frame and no further events are delivered.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	c := s.conn
	s.conn = nil
	s.state = StateClosed
	s.mu.Unlock()

	s.cancel()
	if c == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	if err := c.Close(); err != nil {
		return fmt.Errorf("close websocket: %w", err)
	}
	s.logger.Info("websocket closed")
	return nil
}
