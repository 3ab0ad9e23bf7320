package app

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/domain"
)

// ClearNotice is the body of the synthetic message left behind by a bulk
// history clear.
const ClearNotice = "Chat history has been cleared"

// ChatLog keeps a bounded, per-room chat history. The bound caps memory for
// long-lived rooms; the periodic bulk clear is the retention policy, there
// is no per-message TTL.
type ChatLog struct {
	mu      sync.Mutex
	limit   int
	byRoom  map[domain.RoomID]*roomHistory
	entropy *ulid.MonotonicEntropy
}

type roomHistory struct {
	msgs   []domain.ChatMessage
	lastTS time.Time
}

func NewChatLog(limit int) *ChatLog {
	return &ChatLog{
		limit:   limit,
		byRoom:  make(map[domain.RoomID]*roomHistory),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Append stamps msg with an id and an authoritative server timestamp,
// appends it to the room history and evicts the oldest entries past the
// bound. The returned copy is what gets broadcast.
func (l *ChatLog) Append(room domain.RoomID, msg domain.ChatMessage) domain.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.history(room)
	msg.ServerTime = l.stamp(h)
	msg.ID = ulid.MustNew(ulid.Timestamp(msg.ServerTime), l.entropy).String()

	h.msgs = append(h.msgs, msg)
	if over := len(h.msgs) - l.limit; over > 0 {
		h.msgs = h.msgs[over:]
		log.Debug().Str("module", "app.chat").Str("room", string(room)).Int("evicted", over).Msg("history bound hit")
	}
	return msg
}

// History returns a copy of the retained buffer, oldest first.
func (l *ChatLog) History(room domain.RoomID) []domain.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.byRoom[room]
	if !ok {
		return nil
	}
	out := make([]domain.ChatMessage, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Clear empties the room history, leaving a single system message in its
// place, and returns that message for broadcast.
func (l *ChatLog) Clear(room domain.RoomID) domain.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.history(room)
	notice := domain.ChatMessage{
		Body:       ClearNotice,
		System:     true,
		ServerTime: l.stamp(h),
	}
	notice.ID = ulid.MustNew(ulid.Timestamp(notice.ServerTime), l.entropy).String()
	h.msgs = []domain.ChatMessage{notice}
	log.Info().Str("module", "app.chat").Str("room", string(room)).Msg("history cleared")
	return notice
}

// Drop discards the room's history entirely. Called when a room is
// reclaimed at zero membership.
func (l *ChatLog) Drop(room domain.RoomID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byRoom, room)
}

func (l *ChatLog) history(room domain.RoomID) *roomHistory {
	h, ok := l.byRoom[room]
	if !ok {
		h = &roomHistory{}
		l.byRoom[room] = h
	}
	return h
}

// stamp returns a wall-clock timestamp that is strictly monotonic within
// the room, regardless of clock adjustments between appends.
func (l *ChatLog) stamp(h *roomHistory) time.Time {
	now := time.Now()
	if !now.After(h.lastTS) {
		now = h.lastTS.Add(time.Nanosecond)
	}
	h.lastTS = now
	return now
}
