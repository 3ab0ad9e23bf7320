package lobby

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/domain"
)

func (ctl *Controller) handleJoin(cl *client, data []byte) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "lobby").Msg("bad join payload")
		ctl.send(cl.conn, errorMsg{Type: MsgError, Error: "bad_payload"})
		return
	}

	roomID := domain.DefaultRoom
	if p.Room != "" {
		raw := p.Room
		if len(raw) > domain.MaxRoomIDLen {
			raw = raw[:domain.MaxRoomIDLen]
		}
		roomID = domain.RoomID(raw)
	}

	// Display metadata is client-supplied at join; identity is not.
	sess, ok := ctl.Orch.Registry.GetSession(cl.sid)
	if !ok {
		return
	}
	if p.DisplayName != "" || p.Avatar != "" {
		if err := sess.Meta().SetProfile(p.DisplayName, p.Avatar); err != nil {
			ctl.send(cl.conn, errorMsg{Type: MsgError, Error: "invalid_name"})
			return
		}
	}

	res, ok := ctl.Orch.Join(cl.sid, roomID)
	if !ok {
		return
	}

	ctl.send(cl.conn, rosterMsg{Type: MsgRoomRoster, Room: roomID, Members: res.Roster})
	ctl.send(cl.conn, chatHistoryMsg{Type: MsgChatHistory, Messages: res.History})

	// A room switch is a departure for the old room's members.
	if res.Prev != "" {
		ctl.broadcastRoom(res.Prev, "", memberLeftMsg{Type: MsgMemberLeft, ID: cl.sid})
	}
	if res.Rejoin {
		return
	}
	for _, m := range res.Roster {
		if m.ID == cl.sid {
			ctl.broadcastRoom(roomID, cl.sid, memberJoinedMsg{Type: MsgMemberJoined, Member: m})
			return
		}
	}
}
