// Package orch coordinates the registry, rooms, chat log and speaking
// tracker. It owns the lobby semantics; adapters own wire encoding.
package orch

import (
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Notifier is implemented by the transport adapter. It carries the two
// notifications that originate from timers rather than from an inbound
// message and therefore cannot be encoded inline by a handler.
type Notifier interface {
	UserSpeaking(room domain.RoomID, id core.ConnID, speaking bool)
	ChatCleared(room domain.RoomID, msg domain.ChatMessage)
}

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Chat     *app.ChatLog
	Speaking *app.SpeakingTracker
	Policy   app.Policy
	Notify   Notifier
}

// Stats feeds the health endpoint.
type Stats struct {
	Rooms    int `json:"rooms"`
	Sessions int `json:"users"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		Rooms:    len(o.Rooms.List()),
		Sessions: o.Registry.SessionCount(),
	}
}

// applyBackpressure resolves dropped sessions to connection ids and lets
// the policy decide. A kick goes through Registry.Cancel so the member is
// torn down on the adapter's normal disconnect path.
func (o *Orchestrator) applyBackpressure(room domain.RoomID, res core.PublishResult) {
	if o.Policy == nil || len(res.Dropped) == 0 {
		return
	}
	snaps := o.Registry.MembersOfRoom(room)
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackpressure(o.Rooms.GetOrCreate(room), slow) {
		case app.KickMember:
			for _, snap := range snaps {
				if snap.Session == slow {
					o.Registry.Cancel(snap.CID)
				}
			}
		case app.MarkSlow, app.DropFrame, app.NoAction:
		}
	}
}
