package session

// Status is the externally observable state of a session.
type Status int

const (
	StatusIdle Status = iota
	// StatusAwaitingAssistant means a reply has started arriving or a
	// send is still being delivered.
	StatusAwaitingAssistant
	// StatusThinking is AwaitingAssistant before the first token or reply.
	StatusThinking
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAwaitingAssistant:
		return "awaiting_assistant"
	case StatusThinking:
		return "thinking"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Awaiting reports whether input should be blocked.
func (s Status) Awaiting() bool {
	return s == StatusAwaitingAssistant || s == StatusThinking
}
