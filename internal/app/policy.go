package app

import "github.com/kdrev/Studio/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what to do with a member whose send buffer is full during a
// room broadcast.
type Policy interface {
	OnBackPressure(room domain.RoomID, member domain.ConnID) BackpressureAction
}

// SimplePolicy kicks the slow member: a connection that cannot drain roster
// updates is effectively dead and should not linger in the room.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room domain.RoomID, member domain.ConnID) BackpressureAction {
	return KickMember
}
