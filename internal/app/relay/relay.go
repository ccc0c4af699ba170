// Package relay forwards peer negotiation messages between connections.
// It keeps no state and knows nothing about the floor.
package relay

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Mic/internal/core"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownTarget = errors.New("relay: unknown target")
	ErrBadKind       = errors.New("relay: unsupported message kind")
)

type Kind string

const (
	Offer     Kind = "offer"
	Answer    Kind = "answer"
	Candidate Kind = "candidate"
)

func (k Kind) Valid() bool {
	return k == Offer || k == Answer || k == Candidate
}

// Directory resolves whether a target connection exists.
type Directory interface {
	IsAlive(domain.ConnID) bool
}

type Message struct {
	Kind    Kind
	Room    domain.RoomID
	Payload json.RawMessage
	// To selects a single recipient; empty means everyone else in Room.
	To domain.ConnID
}

// Forwarded is what recipients see.
type Forwarded struct {
	Type    Kind            `json:"type"`
	Room    domain.RoomID   `json:"room"`
	Payload json.RawMessage `json:"payload"`
	Sender  domain.ConnID   `json:"sender"`
}

type Relay struct {
	dir    Directory
	notify core.Notifier
}

func New(dir Directory, notify core.Notifier) *Relay {
	return &Relay{dir: dir, notify: notify}
}

func (r *Relay) Forward(from domain.ConnID, msg Message) error {
	if !msg.Kind.Valid() {
		metricDropped.WithLabelValues("bad_kind").Inc()
		return ErrBadKind
	}
	payload := msg.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	out := Forwarded{Type: msg.Kind, Room: msg.Room, Payload: payload, Sender: from}

	if msg.To != "" {
		if !r.dir.IsAlive(msg.To) {
			metricDropped.WithLabelValues("unknown_target").Inc()
			log.Debug().Str("module", "app.relay").Str("sid", string(from)).Str("to", string(msg.To)).
				Str("kind", string(msg.Kind)).Msg("target gone")
			return ErrUnknownTarget
		}
		r.notify.SendTo(msg.To, out)
		metricForwarded.WithLabelValues(string(msg.Kind), "direct").Inc()
		return nil
	}

	r.notify.Broadcast(msg.Room, out, from)
	metricForwarded.WithLabelValues(string(msg.Kind), "room").Inc()
	return nil
}
