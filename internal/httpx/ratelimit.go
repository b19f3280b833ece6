package httpx

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

// loginLimiter throttles login attempts per visitor.
type loginLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*visitorLimiter
	rate      rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type visitorLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// newLoginLimiter allows perMinute attempts a minute with bursts of the same
// size. A non-positive perMinute disables limiting.
func newLoginLimiter(perMinute int) *loginLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &loginLimiter{
		limiters: make(map[string]*visitorLimiter),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (l *loginLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	v, ok := l.limiters[key]
	if !ok {
		v = &visitorLimiter{lim: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = now
	return v.lim.AllowN(now, 1)
}

// sweep drops limiters idle long enough to have refilled. Runs at most once a minute.
func (l *loginLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < time.Minute {
		return
	}
	l.lastSweep = now
	for k, v := range l.limiters {
		if now.Sub(v.lastSeen) > limiterIdle {
			delete(l.limiters, k)
		}
	}
}
