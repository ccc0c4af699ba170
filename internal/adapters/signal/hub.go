package signal

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/Mic/internal/app"
	"github.com/dkeye/Mic/internal/app/presence"
	"github.com/dkeye/Mic/internal/core"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

// Hub delivers outbound events to live connections. It never blocks: a full
// send buffer is handed to the backpressure policy.
type Hub struct {
	presence *presence.Tracker
	policy   app.Policy

	mu      sync.Mutex
	strikes map[domain.ConnID]int
}

func NewHub(p *presence.Tracker, policy app.Policy) *Hub {
	return &Hub{presence: p, policy: policy, strikes: make(map[domain.ConnID]int)}
}

func (h *Hub) SendTo(conn domain.ConnID, v any) {
	m, ok := h.presence.Get(conn)
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Msg("marshal")
		return
	}
	h.deliver(m, b)
}

// Broadcast marshals once and fans out to every room member not excluded.
func (h *Hub) Broadcast(room domain.RoomID, v any, except ...domain.ConnID) {
	members := h.presence.Members(room)
	if len(members) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Msg("marshal")
		return
	}
next:
	for _, m := range members {
		for _, skip := range except {
			if m.ConnID == skip {
				continue next
			}
		}
		h.deliver(m, b)
	}
}

func (h *Hub) Forget(conn domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.strikes, conn)
}

func (h *Hub) deliver(m presence.Member, f core.Frame) {
	err := m.Signal.TrySend(f)
	if err == nil {
		h.mu.Lock()
		delete(h.strikes, m.ConnID)
		h.mu.Unlock()
		return
	}
	if !errors.Is(err, ErrBackpressure) {
		return
	}

	h.mu.Lock()
	h.strikes[m.ConnID]++
	strikes := h.strikes[m.ConnID]
	h.mu.Unlock()

	action := app.DropFrame
	if h.policy != nil {
		action = h.policy.OnBackPressure(m.ConnID, strikes)
	}
	metricBackpressure.WithLabelValues(action.String()).Inc()
	log.Warn().Str("module", "signal.hub").Str("sid", string(m.ConnID)).Int("strikes", strikes).
		Str("action", action.String()).Msg("slow consumer")
	if action == app.KickMember {
		h.presence.Cancel(m.ConnID)
	}
}
