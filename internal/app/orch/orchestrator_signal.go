package orch

import "github.com/dkeye/Lobby/internal/core"

// TargetInRoom resolves a directed signaling target: it must be a live
// session joined to the same room as the initiator. Used for call
// proposals and answers.
func (o *Orchestrator) TargetInRoom(from, to core.ConnID) (core.MemberSession, bool) {
	roomID, _, ok := o.Registry.RoomOf(from)
	if !ok {
		return nil, false
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil, false
	}
	return room.Member(to)
}

// TargetLive resolves a target by liveness only. Candidates are relayed
// best-effort: they may race with join/leave, so room membership is not
// checked.
func (o *Orchestrator) TargetLive(to core.ConnID) (core.MemberSession, bool) {
	return o.Registry.GetSession(to)
}
