package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Connect registers an authenticated connection. On app.ErrDuplicateSession
// the caller must notify the client and close the transport; no state has
// been created in that case.
func (o *Orchestrator) Connect(cid core.ConnID, user *domain.User, sess core.MemberSession, cancel context.CancelFunc) error {
	if err := o.Registry.RegisterIdentity(user.ID, cid); err != nil {
		return err
	}
	o.Registry.Bind(cid, sess, cancel)
	return nil
}

// JoinResult carries everything the transport needs to encode a join: the
// new room's roster and history for the joiner, the previous room (if any)
// so its members learn about the departure, and whether this was a
// metadata-refresh re-join rather than a new membership.
type JoinResult struct {
	Roster  []core.MemberDTO
	History []domain.ChatMessage
	Prev    domain.RoomID
	Rejoin  bool
}

// Join puts the connection into a room, leaving its previous room first.
func (o *Orchestrator) Join(cid core.ConnID, roomID domain.RoomID) (JoinResult, bool) {
	sess, ok := o.Registry.GetSession(cid)
	if !ok {
		return JoinResult{}, false
	}
	var res JoinResult
	if prev, _, ok := o.Registry.RoomOf(cid); ok && prev != roomID {
		o.leaveRoom(cid, prev)
		res.Prev = prev
	}
	room := o.Rooms.GetOrCreate(roomID)
	res.Rejoin = !room.AddMember(cid, sess)
	o.Registry.UpdateRoom(cid, roomID)
	log.Info().Str("module", "orch").Str("cid", string(cid)).Str("room", string(roomID)).Bool("rejoin", res.Rejoin).Msg("joined room")
	res.Roster = room.MembersSnapshot()
	res.History = o.Chat.History(roomID)
	return res, true
}

// Disconnect tears down everything the connection touched. Calling it for
// an id that is already gone is a no-op, so delayed transport callbacks
// are harmless. It returns the room and user for the departure broadcast.
func (o *Orchestrator) Disconnect(cid core.ConnID) (domain.RoomID, *domain.User, bool) {
	sess, ok := o.Registry.GetSession(cid)
	if !ok {
		return "", nil, false
	}
	o.Speaking.Cancel(cid)

	var roomID domain.RoomID
	if r, _, ok := o.Registry.RoomOf(cid); ok {
		roomID = r
		o.leaveRoom(cid, r)
	}

	user := sess.Meta().Profile()
	if !o.Registry.Unbind(cid) {
		return "", nil, false
	}
	o.Registry.UnregisterIdentity(user.ID, cid)
	log.Info().Str("module", "orch").Str("cid", string(cid)).Str("user", string(user.ID)).Msg("disconnected")
	return roomID, &user, roomID != ""
}

func (o *Orchestrator) leaveRoom(cid core.ConnID, roomID domain.RoomID) {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		o.Registry.RemoveRoom(cid)
		return
	}
	room.RemoveMember(cid)
	o.Registry.RemoveRoom(cid)
	if room.MemberCount() == 0 {
		o.Rooms.Remove(roomID)
		o.Chat.Drop(roomID)
		log.Info().Str("module", "orch").Str("room", string(roomID)).Msg("empty room reclaimed")
	}
}
