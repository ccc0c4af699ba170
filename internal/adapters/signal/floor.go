package signal

import (
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

type ratingPayload struct {
	Room  domain.RoomID `json:"room"`
	Score float64       `json:"score"`
}

func (ctl *SignalWSController) handleRequestFloor(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	if err := ctl.Orch.RequestFloor(id, p.Room, p.Name); err != nil {
		ctl.sendError(conn, errorCode(err))
	}
}

func (ctl *SignalWSController) handleReleaseFloor(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	if !ctl.Orch.ReleaseFloor(id, p.Room) {
		log.Debug().Str("module", "signal").Str("sid", string(id)).Str("room", string(p.Room)).Msg("release ignored")
	}
}

func (ctl *SignalWSController) handleSubmitRating(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p ratingPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	if err := ctl.Orch.SubmitRating(id, p.Room, p.Score); err != nil {
		ctl.sendError(conn, errorCode(err))
	}
}

func (ctl *SignalWSController) handleFinishScoring(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	ctl.Orch.FinishScoring(id, p.Room)
}

func (ctl *SignalWSController) handleReissueToken(id domain.ConnID, conn *WsSignalConn, data []byte) {
	var p roomPayload
	if !ctl.decode(conn, data, &p) {
		return
	}
	ctl.Orch.ReissueToken(id, p.Room)
}
