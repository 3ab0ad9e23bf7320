package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrDuplicateSession is returned when an identity already has a live
// connection. The caller must close the new connection, not this registry.
var ErrDuplicateSession = errors.New("duplicate session")

type sessionEntry struct {
	Room    domain.RoomID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry owns two mappings: connection id -> live session, and user
// identity -> connection id. The second enforces at most one live
// connection per identity.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[core.ConnID]*sessionEntry
	identities map[domain.UserID]core.ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[core.ConnID]*sessionEntry),
		identities: make(map[domain.UserID]core.ConnID),
	}
}

// RegisterIdentity claims uid for cid. A stale claim (its connection is no
// longer bound) is overwritten; a live one rejects the newcomer.
func (r *Registry) RegisterIdentity(uid domain.UserID, cid core.ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.identities[uid]; ok && prior != cid {
		if _, live := r.sessions[prior]; live {
			log.Warn().Str("module", "app.registry").Str("user", string(uid)).Str("cid", string(cid)).Str("prior_cid", string(prior)).Msg("duplicate session rejected")
			return ErrDuplicateSession
		}
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("stale_cid", string(prior)).Msg("replacing stale identity claim")
	}
	r.identities[uid] = cid
	return nil
}

// UnregisterIdentity removes the claim only if it still points at cid, so a
// delayed disconnect cannot clobber a newer registration from a fast
// reconnect.
func (r *Registry) UnregisterIdentity(uid domain.UserID, cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.identities[uid] == cid {
		delete(r.identities, uid)
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("cid", string(cid)).Msg("identity unregistered")
	}
}

func (r *Registry) Bind(cid core.ConnID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[cid] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("bound session")
}

// Unbind removes the session entry. Reports whether it was still bound,
// which makes the disconnect path idempotent.
func (r *Registry) Unbind(cid core.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[cid]; !ok {
		return false
	}
	delete(r.sessions, cid)
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("unbound session")
	return true
}

func (r *Registry) GetSession(cid core.ConnID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[cid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) RoomOf(cid core.ConnID) (domain.RoomID, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[cid]
	if !ok || e.Room == "" {
		return "", nil, false
	}
	return e.Room, e.Session, true
}

func (r *Registry) UpdateRoom(cid core.ConnID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[cid]
	if !ok {
		return false
	}
	e.Room = room
	return true
}

func (r *Registry) RemoveRoom(cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[cid]; ok {
		e.Room = ""
	}
}

func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

type RegistrySnap struct {
	CID     core.ConnID
	Session core.MemberSession
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []RegistrySnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegistrySnap, 0, len(r.sessions))
	for cid, e := range r.sessions {
		if e.Room == room {
			out = append(out, RegistrySnap{CID: cid, Session: e.Session})
		}
	}
	return out
}

// Cancel fires the session's cancel func, which tears the transport down
// through the adapter's normal disconnect path.
func (r *Registry) Cancel(cid core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.sessions[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("canceled session")
	return true
}
