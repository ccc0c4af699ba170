// Package floor coordinates the exclusive microphone of each room: who holds
// it, who waits for it, and how a finished turn is scored.
package floor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/dkeye/Mic/internal/core"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultScoringWindow = 10 * time.Second
	DefaultTokenTTL      = 10 * time.Minute

	commentaryTimeout = 15 * time.Second
)

// Liveness answers whether a connection is still open.
type Liveness interface {
	IsAlive(domain.ConnID) bool
}

type Options struct {
	// ScoringWindow is how long ratings are collected after a release.
	// Zero advances right away.
	ScoringWindow time.Duration
	TokenTTL      time.Duration
	// MinScore and MaxScore bound accepted ratings. Both zero accepts any
	// finite score.
	MinScore float64
	MaxScore float64

	Tokens     core.TokenIssuer
	Commentary core.CommentaryGenerator

	Now func() time.Time
}

type Coordinator struct {
	rooms  *Registry
	alive  Liveness
	notify core.Notifier

	window     time.Duration
	tokenTTL   time.Duration
	minScore   float64
	maxScore   float64
	bounded    bool
	tokens     core.TokenIssuer
	commentary core.CommentaryGenerator
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCoordinator(rooms *Registry, alive Liveness, notify core.Notifier, opts Options) *Coordinator {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		rooms:      rooms,
		alive:      alive,
		notify:     notify,
		window:     opts.ScoringWindow,
		tokenTTL:   opts.TokenTTL,
		minScore:   opts.MinScore,
		maxScore:   opts.MaxScore,
		bounded:    opts.MinScore != 0 || opts.MaxScore != 0,
		tokens:     opts.Tokens,
		commentary: opts.Commentary,
		now:        opts.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// grant describes a turn handed out under the lock; the token for it is
// fetched after the lock is released.
type grant struct {
	room   *Room
	holder domain.Participant
	turn   uint64
}

type outcome struct {
	grant  *grant
	result *RatingResult
}

// RequestFloor grants the floor when the room is idle and queues the
// participant otherwise. Repeated requests are no-ops.
func (c *Coordinator) RequestFloor(roomID domain.RoomID, p domain.Participant) {
	r := c.rooms.GetOrCreate(roomID)

	r.mu.Lock()
	if r.hasLocked(p.ConnID) {
		r.mu.Unlock()
		metricRequests.WithLabelValues("duplicate").Inc()
		log.Debug().Str("module", "app.floor").Str("room", string(roomID)).Str("sid", string(p.ConnID)).Msg("duplicate floor request")
		return
	}
	var out outcome
	if r.phase == Idle {
		out.grant = c.grantLocked(r, p)
		metricRequests.WithLabelValues("granted").Inc()
	} else {
		r.queue = append(r.queue, p)
		metricRequests.WithLabelValues("queued").Inc()
		log.Info().Str("module", "app.floor").Str("room", string(roomID)).Str("sid", string(p.ConnID)).
			Int("position", len(r.queue)).Msg("queued")
	}
	c.notify.Broadcast(roomID, queueSnapshot(r.snapshotLocked()))
	r.mu.Unlock()

	c.after(out)
}

// ReleaseFloor ends the holder's turn and opens the scoring window. Calls
// from anyone but the holder are ignored. Releasing again while scoring
// restarts the window.
func (c *Coordinator) ReleaseFloor(roomID domain.RoomID, conn domain.ConnID) bool {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return false
	}
	r.mu.Lock()
	if !r.isHolder(conn) {
		r.mu.Unlock()
		log.Debug().Str("module", "app.floor").Str("room", string(roomID)).Str("sid", string(conn)).Msg("release by non-holder")
		return false
	}
	var out outcome
	if c.window <= 0 {
		out = c.advanceLocked(r, true)
	} else {
		c.startScoringLocked(r)
		c.notify.Broadcast(roomID, queueSnapshot(r.snapshotLocked()))
	}
	r.mu.Unlock()

	c.after(out)
	return true
}

// SubmitRating records a score for the current holder. Only accepted while
// the room is scoring.
func (c *Coordinator) SubmitRating(roomID domain.RoomID, from domain.ConnID, score float64) bool {
	if !c.scoreAccepted(score) {
		metricRatings.WithLabelValues("out_of_range").Inc()
		return false
	}
	r, ok := c.rooms.Get(roomID)
	if !ok {
		metricRatings.WithLabelValues("dropped").Inc()
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != Scoring || r.holder == nil {
		metricRatings.WithLabelValues("dropped").Inc()
		log.Debug().Str("module", "app.floor").Str("room", string(roomID)).Str("sid", string(from)).
			Str("phase", r.phase.String()).Msg("rating outside scoring")
		return false
	}
	id := r.holder.ConnID
	r.ratings[id] = append(r.ratings[id], score)
	metricRatings.WithLabelValues("accepted").Inc()
	return true
}

func (c *Coordinator) scoreAccepted(score float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return false
	}
	return !c.bounded || (score >= c.minScore && score <= c.maxScore)
}

// Advance publishes the current turn's result and hands the floor to the
// next live participant. No-op when idle.
func (c *Coordinator) Advance(roomID domain.RoomID) bool {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return false
	}
	r.mu.Lock()
	if r.phase == Idle {
		r.mu.Unlock()
		return false
	}
	out := c.advanceLocked(r, true)
	r.mu.Unlock()

	c.after(out)
	return true
}

// FinishScoring lets the holder close the scoring window early.
func (c *Coordinator) FinishScoring(roomID domain.RoomID, conn domain.ConnID) bool {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return false
	}
	r.mu.Lock()
	if r.phase != Scoring || !r.isHolder(conn) {
		r.mu.Unlock()
		return false
	}
	out := c.advanceLocked(r, true)
	r.mu.Unlock()

	c.after(out)
	return true
}

// HandleDisconnect removes a departed connection from the room. A departed
// holder passes the floor on at once; their ratings are only published if
// the turn had already reached scoring. The room always gets a fresh
// snapshot.
func (c *Coordinator) HandleDisconnect(roomID domain.RoomID, conn domain.ConnID) {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return
	}
	r.mu.Lock()
	var out outcome
	switch {
	case r.isHolder(conn):
		log.Info().Str("module", "app.floor").Str("room", string(roomID)).Str("sid", string(conn)).
			Str("phase", r.phase.String()).Msg("holder departed")
		out = c.advanceLocked(r, r.phase == Scoring)
	case r.removeQueuedLocked(conn):
		log.Info().Str("module", "app.floor").Str("room", string(roomID)).Str("sid", string(conn)).Msg("dropped from queue")
		c.notify.Broadcast(roomID, queueSnapshot(r.snapshotLocked()))
	default:
		c.notify.Broadcast(roomID, queueSnapshot(r.snapshotLocked()))
	}
	r.mu.Unlock()

	c.after(out)
}

// ReissueToken fetches a fresh publish token for the current holder.
func (c *Coordinator) ReissueToken(roomID domain.RoomID, conn domain.ConnID) bool {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return false
	}
	r.mu.Lock()
	if !r.isHolder(conn) {
		r.mu.Unlock()
		return false
	}
	g := &grant{room: r, holder: *r.holder, turn: r.turn}
	r.mu.Unlock()

	c.after(outcome{grant: g})
	return true
}

// Snapshot returns the room's floor state. Unknown rooms read as idle.
func (c *Coordinator) Snapshot(roomID domain.RoomID) Snapshot {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return Snapshot{Room: roomID, Queue: []string{}, Phase: Idle}
	}
	return r.Snapshot()
}

// Holder returns the room's current holder.
func (c *Coordinator) Holder(roomID domain.RoomID) (domain.Participant, bool) {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return domain.Participant{}, false
	}
	return r.Holder()
}

func (c *Coordinator) Rooms() []domain.RoomID {
	return c.rooms.List()
}

// Wait blocks until background token and commentary work has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close stops all scoring timers and cancels background work.
func (c *Coordinator) Close() {
	c.cancel()
	c.rooms.each(func(r *Room) {
		r.mu.Lock()
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		r.timerSeq++
		r.mu.Unlock()
	})
	c.wg.Wait()
}

func (c *Coordinator) grantLocked(r *Room, p domain.Participant) *grant {
	holder := p
	r.holder = &holder
	r.turn++
	r.ratings = make(map[domain.ConnID][]float64)
	r.setPhaseLocked(Holding)

	c.notify.SendTo(p.ConnID, FloorGranted{Type: "floor_granted", Room: r.ID})
	c.notify.Broadcast(r.ID, CanListen{
		Type:     "can_listen",
		Room:     r.ID,
		Holder:   p.DisplayName,
		HolderID: p.ConnID,
	}, p.ConnID)

	log.Info().Str("module", "app.floor").Str("room", string(r.ID)).Str("sid", string(p.ConnID)).
		Uint64("turn", r.turn).Msg("floor granted")
	return &grant{room: r, holder: holder, turn: r.turn}
}

// advanceLocked ends the current turn and grants the floor to the first
// queued participant that is still connected.
func (c *Coordinator) advanceLocked(r *Room, publish bool) outcome {
	r.stopTimerLocked()

	var out outcome
	if r.holder != nil {
		if publish {
			res := c.resultLocked(r)
			c.notify.Broadcast(r.ID, res)
			out.result = &res
		}
		r.holder = nil
		r.ratings = make(map[domain.ConnID][]float64)
	}

	for len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		if c.alive != nil && !c.alive.IsAlive(next.ConnID) {
			metricDeadSkips.Inc()
			log.Info().Str("module", "app.floor").Str("room", string(r.ID)).Str("sid", string(next.ConnID)).Msg("skipping departed participant")
			continue
		}
		out.grant = c.grantLocked(r, next)
		break
	}
	if out.grant == nil {
		r.setPhaseLocked(Idle)
	}
	c.notify.Broadcast(r.ID, queueSnapshot(r.snapshotLocked()))
	return out
}

func (c *Coordinator) resultLocked(r *Room) RatingResult {
	scores := r.ratings[r.holder.ConnID]
	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := 0.0
	if len(scores) > 0 {
		avg = sum / float64(len(scores))
		metricRatingAverage.Observe(avg)
	}
	log.Info().Str("module", "app.floor").Str("room", string(r.ID)).Str("sid", string(r.holder.ConnID)).
		Float64("average", avg).Int("count", len(scores)).Msg("turn scored")
	return RatingResult{
		Type:     "rating_result",
		Room:     r.ID,
		Holder:   r.holder.DisplayName,
		HolderID: r.holder.ConnID,
		Average:  avg,
		Count:    len(scores),
	}
}

// after runs the side effects that must not happen under a room lock.
func (c *Coordinator) after(out outcome) {
	if out.grant != nil && c.tokens != nil {
		g := *out.grant
		c.goAsync(func(ctx context.Context) { c.deliverToken(ctx, g) })
	}
	if out.result != nil && out.result.Count > 0 && c.commentary != nil {
		res := *out.result
		c.goAsync(func(ctx context.Context) { c.comment(ctx, res) })
	}
}

func (c *Coordinator) goAsync(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

// deliverToken issues the holder's publish token, retrying once. A failure
// never revokes the grant.
func (c *Coordinator) deliverToken(ctx context.Context, g grant) {
	identity := string(g.holder.ConnID)
	token, err := c.tokens.Issue(ctx, g.room.ID, identity, c.tokenTTL)
	if err != nil {
		metricTokenIssue.WithLabelValues("retry").Inc()
		log.Warn().Err(err).Str("module", "app.floor").Str("room", string(g.room.ID)).Str("sid", identity).Msg("token issue failed, retrying")
		token, err = c.tokens.Issue(ctx, g.room.ID, identity, c.tokenTTL)
	}
	if err != nil {
		metricTokenIssue.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("module", "app.floor").Str("room", string(g.room.ID)).Str("sid", identity).Msg("token issue failed")
		return
	}

	r := g.room
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.turn != g.turn || !r.isHolder(g.holder.ConnID) {
		metricTokenIssue.WithLabelValues("stale").Inc()
		log.Debug().Str("module", "app.floor").Str("room", string(r.ID)).Str("sid", identity).Msg("token for finished turn dropped")
		return
	}
	metricTokenIssue.WithLabelValues("ok").Inc()
	c.notify.SendTo(g.holder.ConnID, PublishToken{
		Type:     "publish_token",
		Room:     r.ID,
		Token:    token,
		Identity: identity,
	})
}

func (c *Coordinator) comment(ctx context.Context, res RatingResult) {
	ctx, cancel := context.WithTimeout(ctx, commentaryTimeout)
	defer cancel()
	text, err := c.commentary.Generate(ctx, res.Holder, res.Average)
	if err != nil || text == "" {
		metricCommentary.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("module", "app.floor").Str("room", string(res.Room)).Msg("commentary unavailable")
		return
	}
	metricCommentary.WithLabelValues("ok").Inc()
	c.notify.Broadcast(res.Room, Commentary{
		Type:   "commentary",
		Room:   res.Room,
		Holder: res.Holder,
		Text:   text,
	})
}
