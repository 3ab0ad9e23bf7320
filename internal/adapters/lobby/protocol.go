package lobby

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Message vocabulary. The union is closed: anything outside this set is
// logged and dropped at the boundary before dispatch.
const (
	// client -> server
	MsgJoinRoom       = "joinRoom"
	MsgChatMessage    = "chatMessage" // also server -> client
	MsgProposeCall    = "proposeCall" // also server -> client (forwarded)
	MsgAcceptCall     = "acceptCall"  // also server -> client (forwarded)
	MsgRelayCandidate = "relayCandidate"
	MsgSpeakingUpdate = "speakingUpdate"
	MsgMuteUpdate     = "muteUpdate"
	MsgPing           = "ping"

	// server -> client
	MsgSocketID         = "socketId"
	MsgRoomRoster       = "roomRoster"
	MsgMemberJoined     = "memberJoined"
	MsgMemberLeft       = "memberLeft"
	MsgDuplicateSession = "duplicateSession"
	MsgChatHistory      = "chatHistory"
	MsgChatCleared      = "chatCleared"
	MsgCallPending      = "callPending"
	MsgCallConnected    = "callConnected"
	MsgCallFailed       = "callFailed"
	MsgUserSpeaking     = "userSpeaking"
	MsgUserMuteUpdate   = "userMuteUpdate"
	MsgPong             = "pong"
	MsgError            = "error"
)

// Failure reasons carried by callFailed. Reported to the initiator only.
const (
	ReasonTargetNotFound     = "target-not-found"
	ReasonTargetDisconnected = "target-disconnected"
	ReasonCandidateDelivery  = "candidate-delivery-failed"
)

type envelope struct {
	Type string `json:"type"`
}

// client -> server payloads

type joinPayload struct {
	Type        string `json:"type"`
	Room        string `json:"room,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

type chatPayload struct {
	Type            string    `json:"type"`
	Text            string    `json:"text"`
	ClientTimestamp time.Time `json:"clientTimestamp,omitempty"`
}

// directedPayload is the common shape of the three signaling kinds. The
// negotiation payload is an opaque blob; the relay never looks inside.
type directedPayload struct {
	Type    string          `json:"type"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type speakingPayload struct {
	Type     string `json:"type"`
	Speaking bool   `json:"speaking"`
}

type mutePayload struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted"`
}

// server -> client payloads

type socketIDMsg struct {
	Type string      `json:"type"`
	ID   core.ConnID `json:"id"`
}

type rosterMsg struct {
	Type    string           `json:"type"`
	Room    domain.RoomID    `json:"room"`
	Members []core.MemberDTO `json:"members"`
}

type memberJoinedMsg struct {
	Type   string         `json:"type"`
	Member core.MemberDTO `json:"member"`
}

type memberLeftMsg struct {
	Type string      `json:"type"`
	ID   core.ConnID `json:"id"`
}

type chatMsg struct {
	Type string `json:"type"`
	domain.ChatMessage
}

type chatHistoryMsg struct {
	Type     string               `json:"type"`
	Messages []domain.ChatMessage `json:"messages"`
}

type chatClearedMsg struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Notice    string    `json:"notice"`
}

// forwardedMsg carries a signaling payload to its target, rewritten from
// {to, payload} to {from, payload}.
type forwardedMsg struct {
	Type    string          `json:"type"`
	From    core.ConnID     `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type callPendingMsg struct {
	Type   string      `json:"type"`
	To     core.ConnID `json:"to"`
	Status string      `json:"status"`
}

type callConnectedMsg struct {
	Type   string      `json:"type"`
	With   core.ConnID `json:"with"`
	Status string      `json:"status"`
}

type callFailedMsg struct {
	Type   string      `json:"type"`
	To     core.ConnID `json:"to"`
	Reason string      `json:"reason"`
}

type userSpeakingMsg struct {
	Type     string      `json:"type"`
	ID       core.ConnID `json:"id"`
	Speaking bool        `json:"speaking"`
}

type userMuteMsg struct {
	Type  string      `json:"type"`
	ID    core.ConnID `json:"id"`
	Muted bool        `json:"muted"`
}

type errorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Binary media framing: 1-byte sender-id length, sender conn id, payload.
// The payload travels verbatim; only the header is ours.

var errBadMediaFrame = errors.New("malformed media frame")

func encodeMediaFrame(from core.ConnID, chunk core.Frame) core.Frame {
	id := []byte(from)
	out := make([]byte, 0, 1+len(id)+len(chunk))
	out = append(out, byte(len(id)))
	out = append(out, id...)
	out = append(out, chunk...)
	return out
}

func decodeMediaFrame(frame core.Frame) (core.ConnID, core.Frame, error) {
	if len(frame) < 1 {
		return "", nil, errBadMediaFrame
	}
	n := int(frame[0])
	if len(frame) < 1+n {
		return "", nil, errBadMediaFrame
	}
	return core.ConnID(frame[1 : 1+n]), frame[1+n:], nil
}
