package floor

import (
	"time"

	"github.com/rs/zerolog/log"
)

// startScoringLocked moves the holder's turn into Scoring and (re)arms the
// room's single timer. A previous timer is cancelled first.
func (c *Coordinator) startScoringLocked(r *Room) {
	r.stopTimerLocked()
	r.setPhaseLocked(Scoring)
	r.deadline = c.now().Add(c.window)
	seq := r.timerSeq
	r.timer = time.AfterFunc(c.window, func() { c.onScoringTimeout(r, seq) })

	c.notify.Broadcast(r.ID, ScoringStarted{
		Type:     "scoring_started",
		Room:     r.ID,
		Holder:   r.holder.DisplayName,
		HolderID: r.holder.ConnID,
		Deadline: r.deadline,
	})
	log.Info().Str("module", "app.floor").Str("room", string(r.ID)).Str("holder", string(r.holder.ConnID)).
		Dur("window", c.window).Msg("scoring started")
}

func (c *Coordinator) onScoringTimeout(r *Room, seq uint64) {
	r.mu.Lock()
	if r.timerSeq != seq || r.phase != Scoring {
		r.mu.Unlock()
		log.Debug().Str("module", "app.floor").Str("room", string(r.ID)).Msg("stale scoring timer")
		return
	}
	out := c.advanceLocked(r, true)
	r.mu.Unlock()
	c.after(out)
}
