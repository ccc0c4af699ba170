package floor

import (
	"sort"
	"sync"

	"github.com/dkeye/Mic/internal/domain"
)

// Registry lazily creates rooms on first reference. Rooms are never removed
// while the process runs.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]*Room)}
}

func (f *Registry) GetOrCreate(id domain.RoomID) *Room {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok {
		return room
	}
	room = newRoom(id)
	f.rooms[id] = room
	metricRooms.Inc()
	return room
}

func (f *Registry) Get(id domain.RoomID) (*Room, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

// List returns all known room ids, sorted.
func (f *Registry) List() []domain.RoomID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(f.rooms))
	for id := range f.rooms {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f *Registry) each(fn func(*Room)) {
	f.mu.RLock()
	rooms := make([]*Room, 0, len(f.rooms))
	for _, r := range f.rooms {
		rooms = append(rooms, r)
	}
	f.mu.RUnlock()
	for _, r := range rooms {
		fn(r)
	}
}
