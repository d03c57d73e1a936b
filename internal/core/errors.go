package core

import "errors"

var (
	// ErrRoomNotFound is returned for operations against a room id that is
	// not currently active.
	ErrRoomNotFound = errors.New("room not found")

	// ErrStreamActive is returned when a connection starts a second
	// broadcast session without stopping the first.
	ErrStreamActive = errors.New("stream already in progress")

	// ErrInvalidStreamKey is returned for a missing or malformed ingest
	// credential; no process is spawned.
	ErrInvalidStreamKey = errors.New("invalid stream key")

	// ErrSessionClosed is returned by writes to an already torn down
	// terminal or broadcast session.
	ErrSessionClosed = errors.New("session closed")
)
