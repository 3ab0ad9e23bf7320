package lobby

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

func (ctl *Controller) handleChat(cl *client, data []byte) {
	if !cl.limiter.Allow() {
		log.Debug().Str("module", "lobby").Str("cid", string(cl.sid)).Msg("chat rate limited")
		ctl.send(cl.conn, errorMsg{Type: MsgError, Error: "rate_limited"})
		return
	}

	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "lobby").Msg("bad chat payload")
		ctl.send(cl.conn, errorMsg{Type: MsgError, Error: "bad_payload"})
		return
	}
	if p.Text == "" {
		return
	}

	roomID, msg, ok := ctl.Orch.PostChat(cl.sid, p.Text, p.ClientTimestamp)
	if !ok {
		return
	}
	ctl.Metrics.ChatMessage()
	ctl.broadcastRoom(roomID, cl.sid, chatMsg{Type: MsgChatMessage, ChatMessage: msg})
}
