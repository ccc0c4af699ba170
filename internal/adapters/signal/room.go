package signal

import (
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomPayload struct {
	Room domain.RoomID `json:"room"`
	Name string        `json:"name,omitempty"`
}

func (ctl *SignalWSController) handleJoin(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	st, err := ctl.Orch.Join(id, p.Room, p.Name)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(id)).Str("room", string(p.Room)).Msg("join rejected")
		ctl.sendError(conn, errorCode(err))
		return
	}
	ctl.sendJSON(conn, st)
}

// handleLeave leaves one room; the connection stays open.
func (ctl *SignalWSController) handleLeave(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(id)).Str("room", string(p.Room)).Msg("leave")
	ctl.Orch.Leave(id, p.Room)
	ctl.sendJSON(conn, struct {
		Type string        `json:"type"`
		Room domain.RoomID `json:"room"`
	}{"left", p.Room})
}
