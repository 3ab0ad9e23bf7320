package lobby

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
)

// handleAudioChunk accepts a raw binary frame in the relay topology and
// hands it to the orchestrator prefixed with the sender id. Frames in p2p
// mode are a protocol error and are dropped.
func (ctl *Controller) handleAudioChunk(cl *client, chunk core.Frame) {
	if ctl.Cfg.MediaMode != config.MediaModeRelay {
		log.Warn().Str("module", "lobby").Str("cid", string(cl.sid)).Msg("audio chunk outside relay mode")
		return
	}
	if len(chunk) == 0 {
		return
	}
	ctl.Metrics.AudioFrame(len(chunk))
	ctl.Orch.RelayAudio(cl.sid, encodeMediaFrame(cl.sid, chunk))
}

// handleSpeakingUpdate applies the explicit speaking flag used by the
// peer-to-peer topology, where no audio passes through the server.
func (ctl *Controller) handleSpeakingUpdate(cl *client, data []byte) {
	if ctl.Cfg.MediaMode != config.MediaModeP2P {
		log.Warn().Str("module", "lobby").Str("cid", string(cl.sid)).Msg("speaking update outside p2p mode")
		return
	}
	var p speakingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "lobby").Msg("bad speaking payload")
		return
	}
	roomID, changed := ctl.Orch.SetSpeaking(cl.sid, p.Speaking)
	if !changed {
		return
	}
	ctl.broadcastRoom(roomID, cl.sid, userSpeakingMsg{Type: MsgUserSpeaking, ID: cl.sid, Speaking: p.Speaking})
}

func (ctl *Controller) handleMuteUpdate(cl *client, data []byte) {
	var p mutePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "lobby").Msg("bad mute payload")
		return
	}
	roomID, ok := ctl.Orch.SetMuted(cl.sid, p.Muted)
	if !ok {
		return
	}
	ctl.broadcastRoom(roomID, cl.sid, userMuteMsg{Type: MsgUserMuteUpdate, ID: cl.sid, Muted: p.Muted})
}
