package core

import "github.com/dkeye/Mic/internal/domain"

// Frame is a raw encoded message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Notifier delivers outbound events. Implementations must not block:
// callers hold a room lock while emitting.
type Notifier interface {
	SendTo(conn domain.ConnID, v any)
	Broadcast(room domain.RoomID, v any, except ...domain.ConnID)
}
