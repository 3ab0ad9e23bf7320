package core

import (
	"sort"
	"sync"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id domain.RoomID

	mu      sync.RWMutex
	members map[ConnID]*memberSlot
	seq     uint64
}

// memberSlot keeps the join sequence so the roster stays ordered by
// join time across idempotent re-adds.
type memberSlot struct {
	sess MemberSession
	seq  uint64
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:      id,
		members: make(map[ConnID]*memberSlot),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Member(id ConnID) (MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.members[id]
	if !ok {
		return nil, false
	}
	return slot.sess, true
}

func (r *roomImpl) AddMember(id ConnID, ms MemberSession) bool {
	u := ms.Meta().UserID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.members[id]; ok {
		slot.sess = ms
		log.Debug().Str("module", "core.room").Str("cid", string(id)).Msg("member re-added, metadata updated")
		return false
	}
	r.seq++
	r.members[id] = &memberSlot{sess: ms, seq: r.seq}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("cid", string(id)).Str("user", string(u)).Msg("member added")
	return true
}

func (r *roomImpl) RemoveMember(id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return
	}
	delete(r.members, id)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("cid", string(id)).Msg("member removed")
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type entry struct {
		dto MemberDTO
		seq uint64
	}
	entries := make([]entry, 0, len(r.members))
	for id, slot := range r.members {
		m := slot.sess.Meta()
		prof := m.Profile()
		entries = append(entries, entry{
			dto: MemberDTO{
				ID:       id,
				UserID:   prof.ID,
				Username: prof.Username,
				Avatar:   prof.Avatar,
				Speaking: m.Speaking(),
				Muted:    m.Muted(),
			},
			seq: slot.seq,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]MemberDTO, len(entries))
	for i, e := range entries {
		out[i] = e.dto
	}
	return out
}

func (r *roomImpl) Broadcast(from ConnID, data Frame) PublishResult {
	return r.fanout(from, false, false, data)
}

func (r *roomImpl) BroadcastAll(data Frame) PublishResult {
	return r.fanout("", true, false, data)
}

func (r *roomImpl) BroadcastBinary(from ConnID, data Frame) PublishResult {
	return r.fanout(from, false, true, data)
}

func (r *roomImpl) fanout(from ConnID, includeSender, binary bool, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, slot := range r.members {
		if !includeSender && id == from {
			continue
		}
		var err error
		if binary {
			err = slot.sess.Signal().TrySendBinary(data)
		} else {
			err = slot.sess.Signal().TrySend(data)
		}
		if err != nil {
			res.Dropped = append(res.Dropped, slot.sess)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
