// Package orch maps client intents onto presence, floor and relay.
package orch

import (
	"context"

	"github.com/dkeye/Mic/internal/app/floor"
	"github.com/dkeye/Mic/internal/app/presence"
	"github.com/dkeye/Mic/internal/app/relay"
	"github.com/dkeye/Mic/internal/core"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Presence *presence.Tracker
	Floor    *floor.Coordinator
	Relay    *relay.Relay
	Notify   core.Notifier
}

// New wires the orchestrator and subscribes it to presence departures.
func New(p *presence.Tracker, f *floor.Coordinator, r *relay.Relay, n core.Notifier) *Orchestrator {
	o := &Orchestrator{Presence: p, Floor: f, Relay: r, Notify: n}
	p.OnDepart(o.onDepart)
	return o
}

func (o *Orchestrator) Connect(id domain.ConnID, name string, sig core.SignalConnection, cancel context.CancelFunc) {
	o.Presence.Bind(id, name, sig, cancel)
}

// Disconnect forgets the connection. Floor cleanup runs from the depart hook.
func (o *Orchestrator) Disconnect(id domain.ConnID) {
	o.Presence.Unbind(id)
}

func (o *Orchestrator) onDepart(id domain.ConnID, room domain.RoomID) {
	o.Floor.HandleDisconnect(room, id)
	o.Notify.Broadcast(room, MemberLeft{Type: "member_left", Room: room, ID: id})
	log.Info().Str("module", "app.orch").Str("sid", string(id)).Str("room", string(room)).Msg("member departed")
}
