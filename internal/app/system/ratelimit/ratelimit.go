// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter is a fixed-window counter keyed by caller (user id for join
// requests, client IP for login). It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	windows  map[string]*window
	limit    int
	duration time.Duration
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit calls per duration.
func New(limit int, duration time.Duration) *Limiter {
	return NewWithClock(limit, duration, clockwork.NewRealClock())
}

// NewWithClock is New with an injected clock.
func NewWithClock(limit int, duration time.Duration, clock clockwork.Clock) *Limiter {
	return &Limiter{
		clock:    clock,
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
	}
}

// Allow records a call for key and reports whether it is within the limit.
// A nil limiter allows everything.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many calls key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.clock.Now().After(w.expiresAt) {
		return l.limit
	}
	if r := l.limit - w.count; r > 0 {
		return r
	}
	return 0
}

// sweep drops expired windows once the map grows; caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}
