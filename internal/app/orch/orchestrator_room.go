package orch

import (
	"errors"

	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected = errors.New("connection not bound")
	ErrBadRoom      = errors.New("invalid room id")
)

// Join adds the connection to a room and returns the state the joiner needs
// to render it. Joining twice just returns the state again.
func (o *Orchestrator) Join(id domain.ConnID, room domain.RoomID, name string) (RoomState, error) {
	if !room.Valid() {
		return RoomState{}, ErrBadRoom
	}
	if name != "" {
		n, err := domain.NormalizeName(name)
		if err != nil {
			return RoomState{}, err
		}
		o.Presence.SetName(id, n)
	}
	me, ok := o.Presence.Get(id)
	if !ok {
		return RoomState{}, ErrNotConnected
	}

	if o.Presence.Join(id, room) {
		o.Notify.Broadcast(room, MemberJoined{
			Type:   "member_joined",
			Room:   room,
			Member: MemberDTO{ID: id, Name: me.Name},
		}, id)
		log.Info().Str("module", "app.orch").Str("sid", string(id)).Str("room", string(room)).Msg("join")
	}
	return o.RoomState(room), nil
}

func (o *Orchestrator) Leave(id domain.ConnID, room domain.RoomID) bool {
	return o.Presence.Leave(id, room)
}

func (o *Orchestrator) RoomState(room domain.RoomID) RoomState {
	members := o.Presence.Members(room)
	dto := make([]MemberDTO, len(members))
	for i, m := range members {
		dto[i] = MemberDTO{ID: m.ConnID, Name: m.Name}
	}
	return RoomState{
		Type:    "room_state",
		Room:    room,
		Members: dto,
		Count:   len(dto),
		Floor:   o.Floor.Snapshot(room),
	}
}
