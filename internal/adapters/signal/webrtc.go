package signal

import (
	"encoding/json"

	"github.com/dkeye/Mic/internal/app/relay"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

// negotiationPayload carries an SDP or ICE candidate between peers. The
// payload itself is never inspected.
type negotiationPayload struct {
	Type    relay.Kind      `json:"type"`
	Room    domain.RoomID   `json:"room"`
	Payload json.RawMessage `json:"payload"`
	To      domain.ConnID   `json:"to,omitempty"`
}

func (ctl *SignalWSController) handleNegotiation(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p negotiationPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	err := ctl.Orch.Signal(id, relay.Message{Kind: p.Type, Room: p.Room, Payload: p.Payload, To: p.To})
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(id)).Str("kind", string(p.Type)).Msg("negotiation dropped")
	}
}
