package core

import (
	"time"

	"github.com/kdrev/Studio/internal/domain"
)

// RoomInfo is the read-only room summary served to get-room-info.
type RoomInfo struct {
	RoomID    domain.RoomID `json:"roomId"`
	UserCount int           `json:"userCount"`
	Initiator domain.ConnID `json:"initiator"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Snapshot is the full roster view broadcast to every member of a room on
// join, leave and rename. Media-state changes deliberately do not use it;
// they travel as deltas.
type Snapshot struct {
	RoomID    domain.RoomID   `json:"roomId"`
	Users     []domain.Member `json:"users"`
	Initiator domain.ConnID   `json:"initiator"`
}
