package floor

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Mic/internal/domain"
	"github.com/stretchr/testify/mock"
)

type sent struct {
	to     domain.ConnID
	room   domain.RoomID
	except []domain.ConnID
	msg    any
}

type recorder struct {
	mu     sync.Mutex
	events []sent
}

func (r *recorder) SendTo(conn domain.ConnID, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{to: conn, msg: v})
}

func (r *recorder) Broadcast(room domain.RoomID, v any, except ...domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{room: room, except: except, msg: v})
}

func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func eventsOf[T any](r *recorder) []T {
	var out []T
	for _, e := range r.all() {
		if v, ok := e.msg.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type liveSet struct {
	mu   sync.Mutex
	dead map[domain.ConnID]bool
}

func newLiveSet() *liveSet { return &liveSet{dead: make(map[domain.ConnID]bool)} }

func (l *liveSet) kill(id domain.ConnID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dead[id] = true
}

func (l *liveSet) IsAlive(id domain.ConnID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.dead[id]
}

type tokenMock struct{ mock.Mock }

func (m *tokenMock) Issue(ctx context.Context, room domain.RoomID, identity string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, room, identity, ttl)
	return args.String(0), args.Error(1)
}

type commentaryMock struct{ mock.Mock }

func (m *commentaryMock) Generate(ctx context.Context, identity string, average float64) (string, error) {
	args := m.Called(ctx, identity, average)
	return args.String(0), args.Error(1)
}

// gatedIssuer blocks until release is closed.
type gatedIssuer struct{ release chan struct{} }

func (g gatedIssuer) Issue(ctx context.Context, _ domain.RoomID, _ string, _ time.Duration) (string, error) {
	select {
	case <-g.release:
		return "late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func part(id string) domain.Participant {
	return domain.Participant{ConnID: domain.ConnID(id), DisplayName: "name-" + id}
}
