package domain

import "time"

// RoomID is the human-shareable room code, e.g. "abc-def-ghi".
type RoomID string

type Room struct {
	ID        RoomID
	CreatedAt time.Time
}
