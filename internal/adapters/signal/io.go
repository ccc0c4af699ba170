package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Mic/internal/app/orch"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(id)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(id)
		ctl.Hub.Forget(id)
		if ctl.Limits != nil {
			ctl.Limits.Forget(id)
		}
		metricConnections.Dec()
		c.Close()
	}()

	pongWait := ctl.pingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleSignal(id, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(id domain.ConnID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}
	if ctl.Limits != nil && !ctl.Limits.Allow(id) {
		metricRateLimited.Inc()
		log.Debug().Str("module", "signal").Str("sid", string(id)).Str("type", env.Type).Msg("rate limited")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(id, c, data)
	case "leave":
		ctl.handleLeave(id, c, data)
	case "ping":
		ctl.handlePing(c)
	case "whoami":
		ctl.handleWhoAmI(id, c)
	case "request_floor":
		ctl.handleRequestFloor(id, c, data)
	case "release_floor":
		ctl.handleReleaseFloor(id, c, data)
	case "submit_rating":
		ctl.handleSubmitRating(id, c, data)
	case "finish_scoring":
		ctl.handleFinishScoring(id, c, data)
	case "reissue_token":
		ctl.handleReissueToken(id, c, data)
	case "offer", "answer", "candidate":
		ctl.handleNegotiation(id, c, data)
	default:
		log.Debug().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		return
	}
	metricMessages.WithLabelValues(env.Type).Inc()
}

// decode unmarshals a payload and answers bad_payload on failure.
func (ctl *SignalWSController) decode(c *WsSignalConn, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad payload")
		ctl.sendError(c, "bad_payload")
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

type errorResp struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, code string) {
	ctl.sendJSON(c, errorResp{Type: "error", Error: code})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, orch.ErrBadRoom):
		return "bad_room"
	case errors.Is(err, orch.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, orch.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong):
		return "invalid_name"
	default:
		return "internal"
	}
}
