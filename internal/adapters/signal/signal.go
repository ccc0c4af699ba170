package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Mic/internal/app/orch"
	"github.com/dkeye/Mic/internal/core"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
)

type Options struct {
	ReadLimit      int64
	PingPeriod     time.Duration
	AllowedOrigins []string
}

type SignalWSController struct {
	Orch   *orch.Orchestrator
	Hub    *Hub
	Limits *ConnRateLimiter

	readLimit  int64
	pingPeriod time.Duration
	upgrader   websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, hub *Hub, limits *ConnRateLimiter, opts Options) *SignalWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	ctl := &SignalWSController{
		Orch:       o,
		Hub:        hub,
		Limits:     limits,
		readLimit:  opts.ReadLimit,
		pingPeriod: opts.PingPeriod,
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: originChecker(opts.AllowedOrigins)}
	return ctl
}

// originChecker allows same-host requests, requests without Origin and the
// configured origins. "*" allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and serves one connection. Every
// connection gets a fresh id; the name is only a display default.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, defaultName string) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	id := domain.ConnID(uuid.NewString())
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, sendBuffer),
	}
	if defaultName == "" {
		defaultName = domain.DefaultName
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(id, defaultName, conn, cancel)
	metricConnections.Inc()
	log.Info().Str("module", "signal").Str("sid", string(id)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ctl.sendJSON(conn, whoAmI{Type: "welcome", ID: id, Username: defaultName})

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
