package floor

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Mic/internal/domain"
)

// Room is the floor state of one room. All fields are guarded by mu.
type Room struct {
	ID domain.RoomID

	mu       sync.Mutex
	queue    []domain.Participant
	holder   *domain.Participant
	phase    Phase
	ratings  map[domain.ConnID][]float64
	deadline time.Time

	// turn increments on every grant; late async work for an older turn is dropped.
	turn     uint64
	timer    *time.Timer
	timerSeq uint64
}

func newRoom(id domain.RoomID) *Room {
	return &Room{ID: id, ratings: make(map[domain.ConnID][]float64)}
}

// Snapshot is the public view of a room's floor.
type Snapshot struct {
	Room          domain.RoomID `json:"room"`
	Queue         []string      `json:"queue"`
	CurrentHolder *string       `json:"current_holder"`
	HolderID      domain.ConnID `json:"holder_id,omitempty"`
	Phase         Phase         `json:"phase"`
	Deadline      *time.Time    `json:"deadline,omitempty"`
}

func (r *Room) snapshotLocked() Snapshot {
	s := Snapshot{Room: r.ID, Queue: make([]string, len(r.queue)), Phase: r.phase}
	for i, p := range r.queue {
		s.Queue[i] = p.DisplayName
	}
	if r.holder != nil {
		name := r.holder.DisplayName
		s.CurrentHolder = &name
		s.HolderID = r.holder.ConnID
	}
	if !r.deadline.IsZero() {
		d := r.deadline
		s.Deadline = &d
	}
	return s
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Holder returns the current holder, if any.
func (r *Room) Holder() (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holder == nil {
		return domain.Participant{}, false
	}
	return *r.holder, true
}

func (r *Room) isHolder(id domain.ConnID) bool {
	return r.holder != nil && r.holder.ConnID == id
}

func (r *Room) hasLocked(id domain.ConnID) bool {
	if r.isHolder(id) {
		return true
	}
	for _, p := range r.queue {
		if p.ConnID == id {
			return true
		}
	}
	return false
}

func (r *Room) removeQueuedLocked(id domain.ConnID) bool {
	for i, p := range r.queue {
		if p.ConnID == id {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) setPhaseLocked(to Phase) {
	if r.phase == to {
		return
	}
	metricPhaseTransitions.WithLabelValues(r.phase.String(), to.String()).Inc()
	r.phase = to
}

// stopTimerLocked cancels any pending scoring timer and invalidates a
// callback that already fired but has not taken the lock yet.
func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerSeq++
	r.deadline = time.Time{}
}

// checkLocked reports the first broken state invariant.
func (r *Room) checkLocked() error {
	if (r.holder == nil) != (r.phase == Idle) {
		return fmt.Errorf("room %s: holder=%v phase=%s", r.ID, r.holder != nil, r.phase)
	}
	if r.phase == Idle && len(r.queue) > 0 {
		return fmt.Errorf("room %s: idle with %d queued", r.ID, len(r.queue))
	}
	seen := make(map[domain.ConnID]struct{}, len(r.queue))
	for _, p := range r.queue {
		if r.isHolder(p.ConnID) {
			return fmt.Errorf("room %s: holder %s also queued", r.ID, p.ConnID)
		}
		if _, dup := seen[p.ConnID]; dup {
			return fmt.Errorf("room %s: %s queued twice", r.ID, p.ConnID)
		}
		seen[p.ConnID] = struct{}{}
	}
	for id := range r.ratings {
		if !r.isHolder(id) {
			return fmt.Errorf("room %s: ratings kept for %s after holder change", r.ID, id)
		}
	}
	if r.deadline.IsZero() == (r.phase == Scoring) {
		return fmt.Errorf("room %s: deadline set=%v in phase %s", r.ID, !r.deadline.IsZero(), r.phase)
	}
	return nil
}
