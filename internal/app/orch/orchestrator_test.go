package orch

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Mic/internal/app/floor"
	"github.com/dkeye/Mic/internal/app/presence"
	"github.com/dkeye/Mic/internal/app/relay"
	"github.com/dkeye/Mic/internal/core"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

type recorder struct {
	mu   sync.Mutex
	msgs []any
}

func (r *recorder) SendTo(_ domain.ConnID, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, v)
}

func (r *recorder) Broadcast(_ domain.RoomID, v any, _ ...domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, v)
}

func (r *recorder) count(pred func(any) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if pred(m) {
			n++
		}
	}
	return n
}

func newOrch(t *testing.T, window time.Duration) (*Orchestrator, *recorder) {
	t.Helper()
	rec := &recorder{}
	p := presence.New()
	f := floor.NewCoordinator(floor.NewRegistry(), p, rec, floor.Options{ScoringWindow: window})
	t.Cleanup(f.Close)
	return New(p, f, relay.New(p, rec), rec), rec
}

func TestJoinReturnsRoomState(t *testing.T) {
	o, rec := newOrch(t, 0)
	o.Connect("a", domain.DefaultName, nopConn{}, nil)
	o.Connect("b", domain.DefaultName, nopConn{}, nil)

	_, err := o.Join("a", "r1", "Alice")
	require.NoError(t, err)
	st, err := o.Join("b", "r1", "")
	require.NoError(t, err)

	assert.Equal(t, "room_state", st.Type)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, []MemberDTO{{ID: "a", Name: "Alice"}, {ID: "b", Name: domain.DefaultName}}, st.Members)
	assert.Equal(t, floor.Idle, st.Floor.Phase)

	joined := rec.count(func(m any) bool { _, ok := m.(MemberJoined); return ok })
	assert.Equal(t, 2, joined)

	_, err = o.Join("b", "r1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.count(func(m any) bool { _, ok := m.(MemberJoined); return ok }), "rejoin is silent")
}

func TestJoinValidation(t *testing.T) {
	o, _ := newOrch(t, 0)
	_, err := o.Join("ghost", "r1", "")
	assert.ErrorIs(t, err, ErrNotConnected)

	o.Connect("a", domain.DefaultName, nopConn{}, nil)
	_, err = o.Join("a", "", "")
	assert.ErrorIs(t, err, ErrBadRoom)
	_, err = o.Join("a", "r1", "   ")
	assert.ErrorIs(t, err, domain.ErrUsernameEmpty)
}

func TestDisconnectPassesFloorOn(t *testing.T) {
	o, rec := newOrch(t, time.Hour)
	o.Connect("a", "A", nopConn{}, nil)
	o.Connect("b", "B", nopConn{}, nil)
	require.NoError(t, o.RequestFloor("a", "r1", ""))
	require.NoError(t, o.RequestFloor("b", "r1", ""))

	o.Disconnect("a")

	holder, ok := o.Floor.Holder("r1")
	require.True(t, ok)
	assert.Equal(t, domain.ConnID("b"), holder.ConnID)
	assert.Equal(t, 1, rec.count(func(m any) bool { _, ok := m.(MemberLeft); return ok }))
}

func TestLeaveDropsQueuedEntry(t *testing.T) {
	o, _ := newOrch(t, time.Hour)
	o.Connect("a", "A", nopConn{}, nil)
	o.Connect("b", "B", nopConn{}, nil)
	require.NoError(t, o.RequestFloor("a", "r1", ""))
	require.NoError(t, o.RequestFloor("b", "r1", ""))

	assert.True(t, o.Leave("b", "r1"))
	assert.Empty(t, o.Floor.Snapshot("r1").Queue)
}

func TestRatingRequiresMembership(t *testing.T) {
	o, _ := newOrch(t, time.Hour)
	o.Connect("a", "A", nopConn{}, nil)
	o.Connect("b", "B", nopConn{}, nil)
	require.NoError(t, o.RequestFloor("a", "r1", ""))
	require.True(t, o.ReleaseFloor("a", "r1"))

	assert.ErrorIs(t, o.SubmitRating("b", "r1", 5), ErrNotInRoom)
	_, err := o.Join("b", "r1", "")
	require.NoError(t, err)
	assert.NoError(t, o.SubmitRating("b", "r1", 5))
	assert.True(t, o.FinishScoring("a", "r1"))
}

func TestSignalGoesThroughRelay(t *testing.T) {
	o, rec := newOrch(t, 0)
	o.Connect("a", "A", nopConn{}, nil)
	err := o.Signal("a", relay.Message{Kind: relay.Offer, Room: "r1", To: "nobody"})
	assert.ErrorIs(t, err, relay.ErrUnknownTarget)

	require.NoError(t, o.Signal("a", relay.Message{Kind: relay.Offer, Room: "r1"}))
	assert.Equal(t, 1, rec.count(func(m any) bool { _, ok := m.(relay.Forwarded); return ok }))
}
