package conn

// EventType identifies a supervisor event.
type EventType int

const (
	EventOpened EventType = iota
	EventFrame
	EventTransportError
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventFrame:
		return "frame"
	case EventTransportError:
		return "transport_error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one lifecycle change or inbound payload of the current handle.
type Event struct {
	Type       EventType
	Data       []byte // EventFrame payload
	Err        error  // EventTransportError detail; cause for EventClosed when known
	Generation uint64
}

// Detail returns a printable description of the event's error.
func (e Event) Detail() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}
