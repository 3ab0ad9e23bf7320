package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// PostChat stamps and stores a chat message from cid's room. The returned
// message carries the authoritative server timestamp and is what the
// caller broadcasts to the other members.
func (o *Orchestrator) PostChat(cid core.ConnID, body string, clientTime time.Time) (domain.RoomID, domain.ChatMessage, bool) {
	roomID, sess, ok := o.Registry.RoomOf(cid)
	if !ok {
		return "", domain.ChatMessage{}, false
	}
	u := sess.Meta().Profile()
	msg := o.Chat.Append(roomID, domain.ChatMessage{
		From:       u.ID,
		Username:   u.Username,
		Avatar:     u.Avatar,
		Body:       body,
		ClientTime: clientTime,
	})
	return roomID, msg, true
}

// RunChatSweeper clears every active room's history on a fixed wall-clock
// interval for the life of the process. The clear notice goes to every
// member, sender exclusion does not apply.
func (o *Orchestrator) RunChatSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Str("module", "orch").Dur("interval", interval).Msg("chat sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "orch").Msg("chat sweeper stopped")
			return
		case <-ticker.C:
			for _, info := range o.Rooms.List() {
				notice := o.Chat.Clear(info.ID)
				if o.Notify != nil {
					o.Notify.ChatCleared(info.ID, notice)
				}
			}
		}
	}
}
