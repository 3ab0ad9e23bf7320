package domain

import (
	"sync"
	"time"
)

// Member represents user's participation meta for a room.
// The flags and display identity are written from the owning connection's
// goroutine and read from every other member's goroutine during roster
// snapshots, so all access goes through the lock.
type Member struct {
	mu       sync.RWMutex
	user     *User
	speaking bool
	muted    bool

	JoinedAt time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{user: user, JoinedAt: time.Now()}
}

// UserID never changes after construction.
func (m *Member) UserID() UserID { return m.user.ID }

// Profile returns a copy of the display identity, safe to keep outside
// the lock.
func (m *Member) Profile() User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.user
}

// SetProfile applies client-supplied display metadata. Empty fields keep
// their current values.
func (m *Member) SetProfile(username, avatar string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if username != "" {
		if err := m.user.SetUsername(username); err != nil {
			return err
		}
	}
	if avatar != "" {
		m.user.Avatar = avatar
	}
	return nil
}

// SetSpeaking reports whether the flag actually changed, so callers can
// suppress no-op broadcasts.
func (m *Member) SetSpeaking(v bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.speaking == v {
		return false
	}
	m.speaking = v
	return true
}

func (m *Member) Speaking() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.speaking
}

func (m *Member) SetMuted(v bool) {
	m.mu.Lock()
	m.muted = v
	m.mu.Unlock()
}

func (m *Member) Muted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.muted
}
