package presence

import (
	"os"
	"testing"

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

type departure struct {
	conn  domain.ConnID
	room  domain.RoomID
	alive bool
}

func TestUnbindFiresHooksAfterRemoval(t *testing.T) {
	tr := New()
	var got []departure
	tr.OnDepart(func(conn domain.ConnID, room domain.RoomID) {
		got = append(got, departure{conn, room, tr.IsAlive(conn)})
	})

	tr.Bind("a", "Alice", nopConn{}, nil)
	require.True(t, tr.Join("a", "r2"))
	require.True(t, tr.Join("a", "r1"))
	assert.False(t, tr.Join("a", "r1"), "second join is a no-op")

	tr.Unbind("a")

	assert.Equal(t, []departure{{"a", "r1", false}, {"a", "r2", false}}, got)
	assert.False(t, tr.IsAlive("a"))
	assert.Empty(t, tr.Members("r1"))

	tr.Unbind("a")
	assert.Len(t, got, 2, "unbinding twice fires nothing")
}

func TestLeaveFiresSingleRoom(t *testing.T) {
	tr := New()
	var got []departure
	tr.OnDepart(func(conn domain.ConnID, room domain.RoomID) {
		got = append(got, departure{conn, room, tr.IsAlive(conn)})
	})
	tr.Bind("a", "Alice", nopConn{}, nil)
	tr.Join("a", "r1")
	tr.Join("a", "r2")

	assert.True(t, tr.Leave("a", "r1"))
	assert.False(t, tr.Leave("a", "r1"))
	assert.Equal(t, []departure{{"a", "r1", true}}, got)
	assert.Equal(t, []domain.RoomID{"r2"}, tr.Rooms("a"))
	assert.False(t, tr.InRoom("a", "r1"))
	assert.True(t, tr.InRoom("a", "r2"))
}

func TestMembersInBindOrder(t *testing.T) {
	tr := New()
	for _, id := range []domain.ConnID{"c", "a", "b"} {
		tr.Bind(id, string(id), nopConn{}, nil)
		tr.Join(id, "r1")
	}
	tr.Bind("x", "x", nopConn{}, nil)

	var ids []domain.ConnID
	for _, m := range tr.Members("r1") {
		ids = append(ids, m.ConnID)
	}
	assert.Equal(t, []domain.ConnID{"c", "a", "b"}, ids)
	assert.Equal(t, 4, tr.Count())
}

func TestJoinRequiresBind(t *testing.T) {
	tr := New()
	assert.False(t, tr.Join("ghost", "r1"))
	assert.False(t, tr.SetName("ghost", "x"))
	assert.False(t, tr.Cancel("ghost"))
	_, ok := tr.Get("ghost")
	assert.False(t, ok)
}

func TestCancelAndRename(t *testing.T) {
	tr := New()
	canceled := false
	tr.Bind("a", "guest", nopConn{}, func() { canceled = true })
	require.True(t, tr.SetName("a", "Alice"))

	m, ok := tr.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Alice", m.Name)

	assert.True(t, tr.Cancel("a"))
	assert.True(t, canceled)
	assert.True(t, tr.IsAlive("a"), "cancel does not unbind by itself")
}
