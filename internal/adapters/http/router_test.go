package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Mic/internal/adapters/rtc"
	"github.com/dkeye/Mic/internal/adapters/signal"
	"github.com/dkeye/Mic/internal/adapters/token"
	"github.com/dkeye/Mic/internal/app"
	"github.com/dkeye/Mic/internal/app/floor"
	"github.com/dkeye/Mic/internal/app/orch"
	"github.com/dkeye/Mic/internal/app/presence"
	"github.com/dkeye/Mic/internal/app/relay"
	"github.com/dkeye/Mic/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type stack struct {
	srv    *httptest.Server
	tokens *token.Issuer
}

func newStack(t *testing.T, window time.Duration) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:           "test",
		StaticPath:     t.TempDir(),
		ReadLimit:      1 << 15,
		PingPeriod:     time.Minute,
		Secret:         "test-secret",
		AllowedOrigins: []string{"*"},
		Floor:          config.FloorConfig{ScoringWindow: window, TokenTTL: time.Minute},
	}

	tracker := presence.New()
	hub := signal.NewHub(tracker, app.SimplePolicy{MaxStrikes: 8})
	issuer, err := token.NewIssuer("key", "secret")
	require.NoError(t, err)
	coord := floor.NewCoordinator(floor.NewRegistry(), tracker, hub, floor.Options{
		ScoringWindow: window,
		TokenTTL:      time.Minute,
		Tokens:        issuer,
	})
	o := orch.New(tracker, coord, relay.New(tracker, hub), hub)
	ice, err := rtc.ClientConfig(rtc.ICEOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, Services{
		Orch:   o,
		Hub:    hub,
		Limits: signal.NewConnRateLimiter(1000, 1000),
		Tokens: issuer,
		ICE:    ice,
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
		coord.Close()
	})
	return &stack{srv: srv, tokens: issuer}
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
	id string
	// name from the welcome message
	name string
}

func (s *stack) dial(t *testing.T, jar http.CookieJar) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/ws/signal"
	d := websocket.Dialer{Jar: jar, HandshakeTimeout: 2 * time.Second}
	ws, _, err := d.Dial(url, nil)
	require.NoError(t, err)
	c := &client{t: t, ws: ws}
	t.Cleanup(func() { _ = ws.Close() })

	welcome := c.expect("welcome")
	c.id = welcome["id"].(string)
	c.name = welcome["username"].(string)
	return c
}

func (c *client) send(v map[string]any) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteJSON(v))
}

// expect reads until a message of the given type arrives.
func (c *client) expect(typ string) map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := c.ws.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", typ)
		var m map[string]any
		require.NoError(c.t, json.Unmarshal(data, &m))
		if m["type"] == typ {
			return m
		}
	}
}

func (s *stack) getJSON(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestFloorRoundTrip(t *testing.T) {
	s := newStack(t, 500*time.Millisecond)
	a, b, c := s.dial(t, nil), s.dial(t, nil), s.dial(t, nil)

	for cl, name := range map[*client]string{a: "Alice", b: "Bob", c: "Cara"} {
		cl.send(map[string]any{"type": "join", "room": "r1", "name": name})
		cl.expect("room_state")
	}

	a.send(map[string]any{"type": "request_floor", "room": "r1"})
	a.expect("floor_granted")
	listen := b.expect("can_listen")
	assert.Equal(t, "Alice", listen["holder"])
	assert.Equal(t, a.id, listen["holder_id"])

	tok := a.expect("publish_token")
	claims, err := s.tokens.Parse(tok["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, a.id, claims.Subject)
	assert.True(t, *claims.Video.CanPublish)

	a.send(map[string]any{"type": "release_floor", "room": "r1"})
	b.expect("scoring_started")
	c.expect("scoring_started")
	b.send(map[string]any{"type": "submit_rating", "room": "r1", "score": 5})
	c.send(map[string]any{"type": "submit_rating", "room": "r1", "score": 3})

	res := a.expect("rating_result")
	assert.Equal(t, 4.0, res["average"])
	assert.Equal(t, 2.0, res["count"])
	assert.Equal(t, "Alice", res["holder"])

	snap := a.expect("queue_snapshot")
	assert.Equal(t, "idle", snap["phase"])
	assert.Nil(t, snap["current_holder"])
}

func TestHolderDisconnectGrantsNext(t *testing.T) {
	s := newStack(t, time.Minute)
	a, b := s.dial(t, nil), s.dial(t, nil)

	a.send(map[string]any{"type": "request_floor", "room": "r1", "name": "Alice"})
	a.expect("floor_granted")
	b.send(map[string]any{"type": "request_floor", "room": "r1", "name": "Bob"})
	snap := b.expect("queue_snapshot")
	assert.Equal(t, []any{"Bob"}, snap["queue"])

	require.NoError(t, a.ws.Close())
	b.expect("floor_granted")
	left := b.expect("member_left")
	assert.Equal(t, a.id, left["id"])
}

func TestNegotiationRelay(t *testing.T) {
	s := newStack(t, time.Minute)
	a, b := s.dial(t, nil), s.dial(t, nil)
	a.send(map[string]any{"type": "join", "room": "r1"})
	a.expect("room_state")
	b.send(map[string]any{"type": "join", "room": "r1"})
	b.expect("room_state")

	a.send(map[string]any{"type": "offer", "room": "r1", "to": b.id, "payload": map[string]any{"sdp": "v=0"}})
	offer := b.expect("offer")
	assert.Equal(t, a.id, offer["sender"])
	assert.Equal(t, map[string]any{"sdp": "v=0"}, offer["payload"])

	b.send(map[string]any{"type": "candidate", "room": "r1", "payload": map[string]any{"candidate": "c1"}})
	cand := a.expect("candidate")
	assert.Equal(t, b.id, cand["sender"])
}

func TestProtocolErrors(t *testing.T) {
	s := newStack(t, time.Minute)
	a := s.dial(t, nil)

	require.NoError(t, a.ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "bad_payload", a.expect("error")["error"])

	a.send(map[string]any{"type": "join", "room": ""})
	assert.Equal(t, "bad_room", a.expect("error")["error"])

	a.send(map[string]any{"type": "submit_rating", "room": "r9", "score": 4})
	assert.Equal(t, "not_in_room", a.expect("error")["error"])

	a.send(map[string]any{"type": "ping"})
	a.expect("pong")

	a.send(map[string]any{"type": "whoami"})
	who := a.expect("whoami")
	assert.Equal(t, a.id, who["id"])
}

func TestRESTEndpoints(t *testing.T) {
	s := newStack(t, time.Minute)
	a, b := s.dial(t, nil), s.dial(t, nil)
	a.send(map[string]any{"type": "request_floor", "room": "r1", "name": "Alice"})
	a.expect("floor_granted")
	b.send(map[string]any{"type": "join", "room": "r1", "name": "Bob"})
	b.expect("room_state")

	resp, err := http.Get(s.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var room orch.RoomState
	assert.Equal(t, http.StatusOK, s.getJSON(t, "/api/rooms/r1", &room))
	assert.Equal(t, 2, room.Count)
	require.NotNil(t, room.Floor.CurrentHolder)
	assert.Equal(t, "Alice", *room.Floor.CurrentHolder)

	var rooms []map[string]any
	assert.Equal(t, http.StatusOK, s.getJSON(t, "/api/rooms", &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0]["room"])

	var listener map[string]string
	assert.Equal(t, http.StatusOK, s.getJSON(t, "/api/publish-token?room=r1&identity="+b.id, &listener))
	assert.Equal(t, "listener", listener["role"])
	claims, err := s.tokens.Parse(listener["token"])
	require.NoError(t, err)
	assert.False(t, *claims.Video.CanPublish)

	assert.Equal(t, http.StatusBadRequest, s.getJSON(t, "/api/publish-token", nil))

	var ice map[string][]map[string]any
	assert.Equal(t, http.StatusOK, s.getJSON(t, "/api/ice-servers", &ice))
	require.Len(t, ice["iceServers"], 1)

	resp, err = http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPublishTokenNeverGrantsPublish(t *testing.T) {
	s := newStack(t, time.Minute)
	a, b := s.dial(t, nil), s.dial(t, nil)
	b.send(map[string]any{"type": "join", "room": "r1", "name": "Bob"})
	b.expect("room_state")
	a.send(map[string]any{"type": "request_floor", "room": "r1", "name": "Alice"})
	a.expect("floor_granted")

	holderID := b.expect("can_listen")["holder_id"].(string)
	require.Equal(t, a.id, holderID)

	var got map[string]string
	require.Equal(t, http.StatusOK, s.getJSON(t, "/api/publish-token?room=r1&identity="+holderID, &got))
	assert.Equal(t, "listener", got["role"])
	claims, err := s.tokens.Parse(got["token"])
	require.NoError(t, err)
	assert.Equal(t, holderID, claims.Subject)
	assert.False(t, *claims.Video.CanPublish)
}

func TestProfileNameBecomesDefault(t *testing.T) {
	s := newStack(t, time.Minute)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	hc := &http.Client{Jar: jar}

	resp, err := hc.Post(s.srv.URL+"/api/profile", "application/json", bytes.NewBufferString(`{"name":"  Dana "}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c := s.dial(t, jar)
	assert.Equal(t, "Dana", c.name)

	resp, err = hc.Post(s.srv.URL+"/api/profile", "application/json", bytes.NewBufferString(`{"name":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
