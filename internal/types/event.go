package types

import "github.com/google/uuid"

// EventKind enumerates what the tally socket server can report.
type EventKind uint8

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventText
	EventBinary
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventText:
		return "text"
	case EventBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Event is one item pulled from the socket server queue.
type Event struct {
	Kind       EventKind
	Conn       uuid.UUID
	RemoteAddr string
	Payload    []byte
}
