package lobby

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// broadcastRoom marshals once and fans out over the room's text path.
// exclude == "" sends to every member, sender included (the chat-clear
// case); otherwise the originator is skipped.
func (ctl *Controller) broadcastRoom(roomID domain.RoomID, exclude core.ConnID, v any) {
	room, ok := ctl.Orch.Rooms.Get(roomID)
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "lobby").Msg("broadcast marshal")
		return
	}
	var res core.PublishResult
	if exclude == "" {
		res = room.BroadcastAll(b)
	} else {
		res = room.Broadcast(exclude, b)
	}
	for range res.Dropped {
		ctl.Metrics.BroadcastDropped()
	}
}

// UserSpeaking implements orch.Notifier. The transition is broadcast to
// everyone but the speaker, who has authoritative local state.
func (ctl *Controller) UserSpeaking(roomID domain.RoomID, id core.ConnID, speaking bool) {
	ctl.broadcastRoom(roomID, id, userSpeakingMsg{Type: MsgUserSpeaking, ID: id, Speaking: speaking})
}

// ChatCleared implements orch.Notifier. Unlike normal chat broadcast, the
// clear notice reaches every member with zero exceptions.
func (ctl *Controller) ChatCleared(roomID domain.RoomID, msg domain.ChatMessage) {
	ctl.broadcastRoom(roomID, "", chatClearedMsg{
		Type:      MsgChatCleared,
		Timestamp: msg.ServerTime,
		Notice:    msg.Body,
	})
}
