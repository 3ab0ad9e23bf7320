package app

import (
	"sync"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// RoomManager creates rooms lazily on first join and reclaims them when
// membership reaches zero (the orchestrator drives the reclaim).
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (m *RoomManager) GetOrCreate(id domain.RoomID) core.RoomService {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return room
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[id]; ok {
		return room
	}
	room = core.NewRoomService(id)
	m.rooms[id] = room
	return room
}

func (m *RoomManager) Get(id domain.RoomID) (core.RoomService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	return room, ok
}

func (m *RoomManager) List() []core.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for id, r := range m.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}

func (m *RoomManager) Remove(id domain.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
}
