package signal

import "github.com/dkeye/Mic/internal/domain"

type whoAmI struct {
	Type     string          `json:"type"`
	ID       domain.ConnID   `json:"id"`
	Username string          `json:"username"`
	Rooms    []domain.RoomID `json:"rooms,omitempty"`
}

func (ctl *SignalWSController) handleWhoAmI(id domain.ConnID, conn *WsSignalConn) {
	resp := whoAmI{Type: "whoami", ID: id, Rooms: ctl.Orch.Presence.Rooms(id)}
	if m, ok := ctl.Orch.Presence.Get(id); ok {
		resp.Username = m.Name
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
	}{"pong"})
}
