// Package ratelimit provides a fixed-window admission gate for dispatch
// throughput.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultPerSecond is the admission ceiling used when no limit is given.
const DefaultPerSecond = 500

// Limiter admits up to limit calls per one-second window. The window is
// fixed, not sliding: up to 2*limit calls can land across a window
// boundary. That burst is an accepted property of this limiter, not
// something callers should compensate for.
//
// TryAcquire never blocks. Callers that need to wait poll with a small
// sleep.
type Limiter struct {
	mu          sync.Mutex
	limit       int
	count       int
	windowStart time.Time

	now func() time.Time // overridable in tests
}

// New returns a limiter admitting up to perSecond calls per window.
// Non-positive values fall back to DefaultPerSecond.
func New(perSecond int) *Limiter {
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}
	return &Limiter{limit: perSecond, now: time.Now}
}

// TryAcquire reports whether the call is admitted in the current window.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) > time.Second {
		l.count = 0
		l.windowStart = now
	}
	if l.count < l.limit {
		l.count++
		return true
	}
	return false
}

// Limit returns the configured per-window ceiling.
func (l *Limiter) Limit() int {
	return l.limit
}
