// Package presence tracks which connections are alive and which rooms they
// joined. It is the single source of truth for liveness.
package presence

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Mic/internal/core"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

// DepartFunc is called once per room a connection leaves, after the
// connection is already gone from the tracker when it disconnected.
type DepartFunc func(conn domain.ConnID, room domain.RoomID)

type entry struct {
	seq    uint64
	name   string
	signal core.SignalConnection
	cancel context.CancelFunc
	rooms  map[domain.RoomID]struct{}
}

// Member is a read-only view of one tracked connection.
type Member struct {
	ConnID domain.ConnID
	Name   string
	Signal core.SignalConnection
}

type Tracker struct {
	mu    sync.RWMutex
	seq   uint64
	conns map[domain.ConnID]*entry
	hooks []DepartFunc
}

func New() *Tracker {
	return &Tracker{conns: make(map[domain.ConnID]*entry)}
}

// OnDepart registers a hook. Register hooks before serving traffic.
func (t *Tracker) OnDepart(fn DepartFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

func (t *Tracker) Bind(id domain.ConnID, name string, sig core.SignalConnection, cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.conns[id] = &entry{
		seq:    t.seq,
		name:   name,
		signal: sig,
		cancel: cancel,
		rooms:  make(map[domain.RoomID]struct{}),
	}
	log.Info().Str("module", "app.presence").Str("sid", string(id)).Str("name", name).Msg("bound signal")
}

func (t *Tracker) SetName(id domain.ConnID, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.conns[id]
	if !ok {
		return false
	}
	e.name = name
	log.Info().Str("module", "app.presence").Str("sid", string(id)).Str("name", name).Msg("updated name")
	return true
}

// Join adds the connection to a room. Returns false if the connection is not
// bound or was already a member.
func (t *Tracker) Join(id domain.ConnID, room domain.RoomID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.conns[id]
	if !ok {
		return false
	}
	if _, in := e.rooms[room]; in {
		return false
	}
	e.rooms[room] = struct{}{}
	log.Info().Str("module", "app.presence").Str("sid", string(id)).Str("room", string(room)).Msg("joined room")
	return true
}

// Leave removes the room association and fires depart hooks for it.
func (t *Tracker) Leave(id domain.ConnID, room domain.RoomID) bool {
	t.mu.Lock()
	e, ok := t.conns[id]
	if ok {
		_, ok = e.rooms[room]
		delete(e.rooms, room)
	}
	hooks := t.hooks
	t.mu.Unlock()
	if !ok {
		return false
	}
	log.Info().Str("module", "app.presence").Str("sid", string(id)).Str("room", string(room)).Msg("left room")
	for _, fn := range hooks {
		fn(id, room)
	}
	return true
}

// Unbind forgets the connection and fires depart hooks for every room it had
// joined. Hooks observe IsAlive(id) == false.
func (t *Tracker) Unbind(id domain.ConnID) {
	t.mu.Lock()
	e, ok := t.conns[id]
	delete(t.conns, id)
	hooks := t.hooks
	t.mu.Unlock()
	if !ok {
		return
	}
	log.Info().Str("module", "app.presence").Str("sid", string(id)).Int("rooms", len(e.rooms)).Msg("unbind session")
	for _, room := range sortedRooms(e.rooms) {
		for _, fn := range hooks {
			fn(id, room)
		}
	}
}

func (t *Tracker) IsAlive(id domain.ConnID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.conns[id]
	return ok
}

func (t *Tracker) InRoom(id domain.ConnID, room domain.RoomID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.conns[id]
	if !ok {
		return false
	}
	_, ok = e.rooms[room]
	return ok
}

func (t *Tracker) Get(id domain.ConnID) (Member, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.conns[id]
	if !ok {
		return Member{}, false
	}
	return Member{ConnID: id, Name: e.name, Signal: e.signal}, true
}

// Members returns the room's connections in bind order.
func (t *Tracker) Members(room domain.RoomID) []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()
	type snap struct {
		seq uint64
		m   Member
	}
	found := make([]snap, 0)
	for id, e := range t.conns {
		if _, ok := e.rooms[room]; ok {
			found = append(found, snap{seq: e.seq, m: Member{ConnID: id, Name: e.name, Signal: e.signal}})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	out := make([]Member, len(found))
	for i, s := range found {
		out[i] = s.m
	}
	return out
}

func (t *Tracker) Rooms(id domain.ConnID) []domain.RoomID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.conns[id]
	if !ok {
		return nil
	}
	return sortedRooms(e.rooms)
}

func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

// Cancel stops the connection's pumps. Unbind happens when they exit.
func (t *Tracker) Cancel(id domain.ConnID) bool {
	t.mu.RLock()
	e, ok := t.conns[id]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	log.Info().Str("module", "app.presence").Str("sid", string(id)).Msg("canceled session")
	return true
}

func sortedRooms(set map[domain.RoomID]struct{}) []domain.RoomID {
	out := make([]domain.RoomID, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
