package signal

import (
	"sync"

	"github.com/dkeye/Mic/internal/domain"
	"golang.org/x/time/rate"
)

// ConnRateLimiter is a token bucket per connection.
type ConnRateLimiter struct {
	mu       sync.Mutex
	limiters map[domain.ConnID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewConnRateLimiter(perSecond float64, burst int) *ConnRateLimiter {
	return &ConnRateLimiter{
		limiters: make(map[domain.ConnID]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *ConnRateLimiter) Allow(id domain.ConnID) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[id]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[id] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

func (rl *ConnRateLimiter) Forget(id domain.ConnID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, id)
}
