package orch

import (
	"errors"

	"github.com/dkeye/Mic/internal/app/relay"
	"github.com/dkeye/Mic/internal/domain"
)

var ErrNotInRoom = errors.New("not a member of the room")

// RequestFloor joins the room if needed and asks for the microphone.
func (o *Orchestrator) RequestFloor(id domain.ConnID, room domain.RoomID, name string) error {
	if _, err := o.Join(id, room, name); err != nil {
		return err
	}
	me, ok := o.Presence.Get(id)
	if !ok {
		return ErrNotConnected
	}
	o.Floor.RequestFloor(room, domain.Participant{ConnID: id, DisplayName: me.Name})
	return nil
}

func (o *Orchestrator) ReleaseFloor(id domain.ConnID, room domain.RoomID) bool {
	return o.Floor.ReleaseFloor(room, id)
}

func (o *Orchestrator) FinishScoring(id domain.ConnID, room domain.RoomID) bool {
	return o.Floor.FinishScoring(room, id)
}

func (o *Orchestrator) ReissueToken(id domain.ConnID, room domain.RoomID) bool {
	return o.Floor.ReissueToken(room, id)
}

// SubmitRating only counts votes from members of the room.
func (o *Orchestrator) SubmitRating(id domain.ConnID, room domain.RoomID, score float64) error {
	if !o.Presence.InRoom(id, room) {
		return ErrNotInRoom
	}
	o.Floor.SubmitRating(room, id, score)
	return nil
}

func (o *Orchestrator) Signal(id domain.ConnID, msg relay.Message) error {
	return o.Relay.Forward(id, msg)
}
