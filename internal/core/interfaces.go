package core

import "github.com/kdrev/Studio/internal/domain"

// Frame is a raw outbound payload, already encoded for the wire.
type Frame []byte

// SignalConnection abstracts the transport endpoint of one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// EventSink delivers one encoded event to one connection. The orchestrator
// implements it; session supervisors use it to push output and errors
// without knowing anything about the transport.
type EventSink interface {
	SendEvent(id domain.ConnID, v any)
}
