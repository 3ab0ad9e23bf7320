package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// RelayAudio fans a pre-encoded media frame out to the sender's room and
// feeds the speaking tracker. The first frame of a burst flips the speaking
// flag and broadcasts the transition; the tracker's timeout flips it back.
func (o *Orchestrator) RelayAudio(cid core.ConnID, frame core.Frame) {
	roomID, sess, ok := o.Registry.RoomOf(cid)
	if !ok {
		return
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return
	}

	if o.Speaking.OnFrame(cid) {
		sess.Meta().SetSpeaking(true)
		if o.Notify != nil {
			o.Notify.UserSpeaking(roomID, cid, true)
		}
	}

	res := room.BroadcastBinary(cid, frame)
	o.applyBackpressure(roomID, res)
}

// OnSpeakingTimeout is the SpeakingTracker's stop callback. The session may
// already be gone; a torn-down member is never mutated.
func (o *Orchestrator) OnSpeakingTimeout(cid core.ConnID) {
	roomID, sess, ok := o.Registry.RoomOf(cid)
	if !ok {
		log.Debug().Str("module", "orch").Str("cid", string(cid)).Msg("speaking timeout for departed session")
		return
	}
	if !sess.Meta().SetSpeaking(false) {
		return
	}
	if o.Notify != nil {
		o.Notify.UserSpeaking(roomID, cid, false)
	}
}

// SetSpeaking applies an explicit client-reported speaking flag (the
// peer-to-peer topology). Only an actual change produces a broadcast, so
// noisy clients cannot cause notification storms.
func (o *Orchestrator) SetSpeaking(cid core.ConnID, speaking bool) (domain.RoomID, bool) {
	roomID, sess, ok := o.Registry.RoomOf(cid)
	if !ok {
		return "", false
	}
	if !sess.Meta().SetSpeaking(speaking) {
		return "", false
	}
	return roomID, true
}

// SetMuted updates the member's mute flag for roster views and reports the
// room for the broadcast.
func (o *Orchestrator) SetMuted(cid core.ConnID, muted bool) (domain.RoomID, bool) {
	roomID, sess, ok := o.Registry.RoomOf(cid)
	if !ok {
		return "", false
	}
	sess.Meta().SetMuted(muted)
	return roomID, true
}
