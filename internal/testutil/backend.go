package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// ReplyFunc returns the raw frames a fake backend writes back for one inbound message.
type ReplyFunc func(msg string) []string

// ParamCall records one settings request received by the fake backend.
type ParamCall struct {
	Path string
	Body map[string]any
}

// Backend is an in-process stand-in for the inference server. It speaks the
// completions socket protocol and records settings requests.
type Backend struct {
	Server *httptest.Server

	upgrader websocket.Upgrader
	reply    ReplyFunc

	mu         sync.Mutex
	received   []string
	conns      []*websocket.Conn
	params     []ParamCall
	upgrades   int
	paramCode  int
	frameDelay time.Duration
	streaming  bool

	writeMu sync.Mutex
}

// NewBackend starts a fake backend that answers every message with reply.
// A nil reply never answers. The server is closed when the test ends.
func NewBackend(t testing.TB, reply ReplyFunc) *Backend {
	t.Helper()
	b := &Backend{
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		reply:     reply,
		paramCode: http.StatusNoContent,
		streaming: true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/completions", b.handleSocket)
	mux.HandleFunc("/chat", b.handleSocket)
	mux.HandleFunc("/set-sampling-param", b.handleParam)
	mux.HandleFunc("/set-streaming", b.handleParam)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		b.DropAll()
		b.Server.Close()
	})
	return b
}

// URL returns the websocket URL of the completions endpoint.
func (b *Backend) URL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + "/completions"
}

// Host returns host:port of the fake backend.
func (b *Backend) Host() string {
	return strings.TrimPrefix(b.Server.URL, "http://")
}

// SetParamStatus changes the HTTP status returned by the settings endpoints.
func (b *Backend) SetParamStatus(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paramCode = code
}

// SetFrameDelay spaces out reply frames, giving a visible streaming effect.
func (b *Backend) SetFrameDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frameDelay = d
}

// Received returns every message received over any socket, in order.
func (b *Backend) Received() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.received...)
}

// Upgrades returns how many websocket connections were accepted.
func (b *Backend) Upgrades() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.upgrades
}

// ParamCalls returns the recorded settings requests.
func (b *Backend) ParamCalls() []ParamCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ParamCall(nil), b.params...)
}

// Push writes a raw frame to every open socket.
func (b *Backend) Push(raw string) {
	b.mu.Lock()
	conns := append([]*websocket.Conn(nil), b.conns...)
	b.mu.Unlock()
	for _, c := range conns {
		_ = b.write(c, raw)
	}
}

func (b *Backend) write(c *websocket.Conn, raw string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return c.WriteMessage(websocket.TextMessage, []byte(raw))
}

// DropAll closes every server-side socket without a close handshake.
func (b *Backend) DropAll() {
	b.mu.Lock()
	conns := b.conns
	b.conns = nil
	b.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

// CloseAll closes every server-side socket with a normal-closure frame.
func (b *Backend) CloseAll() {
	b.mu.Lock()
	conns := b.conns
	b.conns = nil
	b.mu.Unlock()
	for _, c := range conns {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.Close()
	}
}

func (b *Backend) handleSocket(w http.ResponseWriter, r *http.Request) {
	c, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conns = append(b.conns, c)
	b.upgrades++
	b.mu.Unlock()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		msg := string(data)
		b.mu.Lock()
		b.received = append(b.received, msg)
		delay := b.frameDelay
		b.mu.Unlock()

		if b.reply == nil {
			continue
		}
		for _, raw := range b.reply(msg) {
			if delay > 0 {
				time.Sleep(delay)
			}
			if err := b.write(c, raw); err != nil {
				return
			}
		}
	}
}

func (b *Backend) handleParam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	b.mu.Lock()
	b.params = append(b.params, ParamCall{Path: r.URL.Path, Body: decoded})
	code := b.paramCode
	if on, ok := decoded["stream"].(bool); ok && r.URL.Path == "/set-streaming" && code < 300 {
		b.streaming = on
	}
	b.mu.Unlock()
	w.WriteHeader(code)
}

// Streaming reports the mode last accepted on /set-streaming. It starts on.
func (b *Backend) Streaming() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streaming
}

// Message encodes a {"message": text} frame.
func Message(text string) string {
	return encode(map[string]string{"message": text})
}

// ErrorFrame encodes an {"error": reason} frame.
func ErrorFrame(reason string) string {
	return encode(map[string]string{"error": reason})
}

// Stream encodes tokens followed by the end marker.
func Stream(tokens ...string) []string {
	frames := make([]string, 0, len(tokens)+1)
	for _, tok := range tokens {
		frames = append(frames, Message(tok))
	}
	return append(frames, Message("<eos>"))
}

// Echo replies with the inbound message as one complete reply.
func Echo(msg string) []string {
	return []string{Message(msg)}
}

func encode(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}
