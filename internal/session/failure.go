package session

import "fmt"

// FailureKind classifies why a session entered StatusErrored.
type FailureKind int

const (
	// FailureTransport is a socket-level error or close.
	FailureTransport FailureKind = iota
	// FailureProtocol is an error reported by the backend in a frame.
	FailureProtocol
	// FailureMalformed is a frame with neither recognized field.
	FailureMalformed
	// FailureSendUnavailable is a send on a handle that stopped being open.
	FailureSendUnavailable
	// FailureRetriesExhausted means the connection never became usable.
	FailureRetriesExhausted
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport_error"
	case FailureProtocol:
		return "protocol_error"
	case FailureMalformed:
		return "malformed_response"
	case FailureSendUnavailable:
		return "send_unavailable"
	case FailureRetriesExhausted:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

// Unavailable reports whether the failure means the backend could not be
// reached, as opposed to the backend answering with an error.
func (k FailureKind) Unavailable() bool {
	switch k {
	case FailureTransport, FailureSendUnavailable, FailureRetriesExhausted:
		return true
	default:
		return false
	}
}

// Messages shown for failures that carry no server text.
const (
	ConnectionClosedMessage = "WebSocket connection closed"
	SendUnavailableMessage  = "Message cannot be sent: connection is not open"
)

// Failure is the user-visible error of a session.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f Failure) Error() string {
	return f.Message
}

func transportFailure(detail string) *Failure {
	return &Failure{Kind: FailureTransport, Message: "Error msg: " + detail}
}

func exhaustedFailure(attempts int) *Failure {
	return &Failure{
		Kind:    FailureRetriesExhausted,
		Message: fmt.Sprintf("Connection to backend failed after %d attempts. Please check if backend is running properly", attempts),
	}
}
