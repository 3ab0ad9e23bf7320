package core

import "github.com/dkeye/Lobby/internal/domain"

// Frame is a raw payload: a JSON envelope on the text path, an audio
// chunk on the binary path.
type Frame []byte

// ConnID identifies a single realtime transport session. Assigned by the
// adapter at handshake, unique per connection, never reused.
type ConnID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues a text (JSON) frame without blocking.
	TrySend(Frame) error
	// TrySendBinary enqueues a binary media frame without blocking.
	TrySendBinary(Frame) error
	Close()
}

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only roster view for clients (no transport fields).
type MemberDTO struct {
	ID       ConnID        `json:"id"`
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
	Avatar   string        `json:"avatar,omitempty"`
	Speaking bool          `json:"speaking"`
	Muted    bool          `json:"muted,omitempty"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	// MembersSnapshot returns the roster ordered by join time.
	MembersSnapshot() []MemberDTO
	Member(id ConnID) (MemberSession, bool)

	// AddMember is idempotent: re-adding the same id updates the session
	// but keeps the original join order. Reports whether the member was
	// new to the room.
	AddMember(id ConnID, ms MemberSession) bool
	RemoveMember(id ConnID)

	// Broadcast fans a text frame out to every member except from.
	Broadcast(from ConnID, data Frame) PublishResult
	// BroadcastAll fans a text frame out to every member, sender included.
	BroadcastAll(data Frame) PublishResult
	// BroadcastBinary fans a media frame out to every member except from.
	BroadcastBinary(from ConnID, data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"client_count"`
}
