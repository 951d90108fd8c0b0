// Package frame classifies inbound payloads from the completions socket.
//
// The backend sends one JSON object per websocket text message, carrying
// either an "error" or a "message" field. In streaming mode a stream of
// "message" tokens is terminated by the reserved EndMarker.
package frame

import (
	"github.com/tidwall/gjson"
)

// EndMarker terminates a streamed reply. It never appears as genuine content.
const EndMarker = "<eos>"

// MalformedMessage is reported for payloads that carry no recognized field.
const MalformedMessage = "Assistant response has no 'error' or 'message' field"

// Kind identifies the classification of a frame.
type Kind int

const (
	KindMalformed Kind = iota
	KindError
	KindEndOfStream
	KindToken
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindError:
		return "error"
	case KindEndOfStream:
		return "end_of_stream"
	case KindToken:
		return "token"
	default:
		return "unknown"
	}
}

// Frame is one classified inbound payload.
// Text holds the token for KindToken and the reason for KindError and KindMalformed.
type Frame struct {
	Kind Kind
	Text string
}

func Token(text string) Frame  { return Frame{Kind: KindToken, Text: text} }
func Error(reason string) Frame { return Frame{Kind: KindError, Text: reason} }
func EndOfStream() Frame        { return Frame{Kind: KindEndOfStream} }
func Malformed() Frame          { return Frame{Kind: KindMalformed, Text: MalformedMessage} }

// IsFailure reports whether the frame must surface as a session error.
func (f Frame) IsFailure() bool {
	return f.Kind == KindError || f.Kind == KindMalformed
}

// Interpret classifies raw under the given streaming mode. It holds no state:
// a token and a complete non-streamed reply share the same shape, and only
// the caller's mode tells them apart.
func Interpret(raw []byte, streaming bool) Frame {
	if !gjson.ValidBytes(raw) {
		return Malformed()
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Malformed()
	}

	if errField := doc.Get("error"); truthy(errField) {
		return Error(errField.String())
	}

	msg := doc.Get("message")
	if !truthy(msg) {
		return Malformed()
	}
	text := msg.String()
	if streaming && text == EndMarker {
		return EndOfStream()
	}
	return Token(text)
}

// truthy treats absent, null, false, zero and empty-string values as unset,
// matching how the backend's clients have always read these fields.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}
