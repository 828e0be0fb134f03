package fetch

import (
	"context"
	"sync"
	"time"
)

// Limiter caps requests to rate per window and to a fixed number in flight.
type Limiter struct {
	rate   int
	window time.Duration
	tick   time.Duration

	mu       sync.Mutex
	attempts []time.Time
	slots    chan struct{}

	limitedMu   sync.Mutex
	limitedFrom time.Time
}

func NewLimiter(rate int, window time.Duration, concurrent int) *Limiter {
	l := &Limiter{
		rate:   max(1, rate),
		window: window,
		slots:  make(chan struct{}, max(1, concurrent)),
	}
	l.tick = window / time.Duration(l.rate)
	for i := 0; i < cap(l.slots); i++ {
		l.slots <- struct{}{}
	}
	return l
}

// Acquire takes one in-flight slot. The returned func releases it.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-l.slots:
		return func() { l.slots <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until one more request fits into the window.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.tryRecord() {
			return nil
		}
		select {
		case <-time.After(l.tick):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Limiter) tryRecord() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	att := l.attempts
	if len(att) < l.rate || time.Since(att[0]) > l.window {
		att = append(att, time.Now())
		if len(att) > l.rate {
			att = att[1:]
		}
		l.attempts = att
		return true
	}
	return false
}

// Backoff returns how long to pause after the server pushed back. Repeated
// push-back grows the pause with the time since it started.
func (l *Limiter) Backoff() time.Duration {
	l.limitedMu.Lock()
	defer l.limitedMu.Unlock()
	if l.limitedFrom.IsZero() {
		l.limitedFrom = time.Now()
		return l.window
	}
	return max(l.window, time.Since(l.limitedFrom))
}

// Recovered clears the push-back state after a successful request.
func (l *Limiter) Recovered() {
	l.limitedMu.Lock()
	l.limitedFrom = time.Time{}
	l.limitedMu.Unlock()
}
