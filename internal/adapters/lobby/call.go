package lobby

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/core"
)

// handleDirected covers proposeCall and acceptCall. The two differ only in
// the progress notice sent back to the initiator; the negotiation payload
// is forwarded untouched.
func (ctl *Controller) handleDirected(cl *client, data []byte, kind string) {
	p, ok := ctl.parseDirected(cl, data)
	if !ok {
		return
	}
	to := core.ConnID(p.To)

	target, ok := ctl.Orch.TargetInRoom(cl.sid, to)
	if !ok {
		reason := ReasonTargetNotFound
		if kind == MsgAcceptCall {
			reason = ReasonTargetDisconnected
		}
		ctl.send(cl.conn, callFailedMsg{Type: MsgCallFailed, To: to, Reason: reason})
		return
	}

	ctl.forward(target, forwardedMsg{Type: kind, From: cl.sid, Payload: p.Payload})

	switch kind {
	case MsgProposeCall:
		ctl.send(cl.conn, callPendingMsg{Type: MsgCallPending, To: to, Status: "connecting"})
	case MsgAcceptCall:
		ctl.send(cl.conn, callConnectedMsg{Type: MsgCallConnected, With: to, Status: "connected"})
	}
}

// handleCandidate forwards a network-path candidate best-effort. A missing
// target is an expected transient of a dynamic roster, reported to the
// initiator only.
func (ctl *Controller) handleCandidate(cl *client, data []byte) {
	p, ok := ctl.parseDirected(cl, data)
	if !ok {
		return
	}
	to := core.ConnID(p.To)

	target, ok := ctl.Orch.TargetLive(to)
	if !ok {
		ctl.send(cl.conn, callFailedMsg{Type: MsgCallFailed, To: to, Reason: ReasonCandidateDelivery})
		return
	}
	ctl.forward(target, forwardedMsg{Type: MsgRelayCandidate, From: cl.sid, Payload: p.Payload})
}

// parseDirected enforces the protocol shape shared by all directed kinds.
// A missing target id is a client protocol error: logged and dropped.
func (ctl *Controller) parseDirected(cl *client, data []byte) (directedPayload, bool) {
	var p directedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "lobby").Str("cid", string(cl.sid)).Msg("bad directed payload")
		return p, false
	}
	if p.To == "" {
		log.Warn().Str("module", "lobby").Str("cid", string(cl.sid)).Msg("directed message without target")
		return p, false
	}
	return p, true
}

func (ctl *Controller) forward(target core.MemberSession, v forwardedMsg) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "lobby").Msg("forward marshal")
		return
	}
	if err := target.Signal().TrySend(b); err != nil {
		// The target vanished or is saturated mid-relay; degrade to a log.
		log.Debug().Err(err).Str("module", "lobby").Str("type", v.Type).Msg("forward dropped")
		ctl.Metrics.BroadcastDropped()
	}
}
