package lobby

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, cl *client) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "lobby").Str("cid", string(cl.sid)).Msg("writePump ctx done")
			cl.conn.Close()
			return
		case <-ticker.C:
			if err := cl.conn.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := cl.conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case f, ok := <-cl.conn.send:
			if !ok {
				return
			}
			if err := cl.conn.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "lobby").Msg("writePump set deadline")
				return
			}
			mt := websocket.TextMessage
			if f.binary {
				mt = websocket.BinaryMessage
			}
			if err := cl.conn.conn.WriteMessage(mt, f.data); err != nil {
				log.Error().Err(err).Str("module", "lobby").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cl *client) {
	defer func() {
		log.Info().Str("module", "lobby").Str("cid", string(cl.sid)).Msg("readPump closing")
		ctl.disconnect(cl)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			mt, data, err := cl.conn.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Str("module", "lobby").Str("cid", string(cl.sid)).Msg("readPump read error")
				}
				return
			}
			switch mt {
			case websocket.BinaryMessage:
				ctl.handleAudioChunk(cl, core.Frame(data))
			case websocket.TextMessage:
				ctl.dispatch(cl, data)
			}
		}
	}
}

// dispatch validates the discriminant and routes to a typed handler.
// Unknown kinds are logged and dropped; they are never fatal to the
// connection.
func (ctl *Controller) dispatch(cl *client, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "lobby").Str("cid", string(cl.sid)).Msg("bad json")
		return
	}
	ctl.Metrics.MessageReceived(env.Type)

	switch env.Type {
	case MsgJoinRoom:
		ctl.handleJoin(cl, data)
	case MsgChatMessage:
		ctl.handleChat(cl, data)
	case MsgProposeCall:
		ctl.handleDirected(cl, data, MsgProposeCall)
	case MsgAcceptCall:
		ctl.handleDirected(cl, data, MsgAcceptCall)
	case MsgRelayCandidate:
		ctl.handleCandidate(cl, data)
	case MsgSpeakingUpdate:
		ctl.handleSpeakingUpdate(cl, data)
	case MsgMuteUpdate:
		ctl.handleMuteUpdate(cl, data)
	case MsgPing:
		ctl.send(cl.conn, envelope{Type: MsgPong})
	default:
		ctl.Metrics.UnknownMessage()
		log.Warn().Str("module", "lobby").Str("type", env.Type).Msg("unknown message type")
	}
}

func (ctl *Controller) send(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "lobby").Msg("send marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "lobby").Msg("send dropped")
	}
}
