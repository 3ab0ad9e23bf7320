package app

import "github.com/dkeye/Lobby/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose send buffer overflowed
// during a fan-out.
type Policy interface {
	OnBackpressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(room core.RoomService, member core.MemberSession) BackpressureAction {
	return KickMember
}
