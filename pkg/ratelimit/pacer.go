package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Pacer enforces a minimum spacing between consecutive operations. The
// reference point is whatever the caller last passed to Mark; a fresh pacer
// starts two intervals in the past so the first operation never waits.
type Pacer struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	interval time.Duration
	last     time.Time
}

// NewPacer creates a pacer with the given minimum interval.
func NewPacer(interval time.Duration, clock clockwork.Clock) *Pacer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval < 0 {
		interval = 0
	}
	return &Pacer{
		clock:    clock,
		interval: interval,
		last:     clock.Now().Add(-2 * interval),
	}
}

// Interval returns the configured minimum spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Delay returns max(0, interval - (now - last)).
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := p.interval - p.clock.Since(p.last)
	if d < 0 {
		return 0
	}
	return d
}

// Wait sleeps out the remaining delay and returns how long it slept. It
// is not cancellable.
func (p *Pacer) Wait() time.Duration {
	d := p.Delay()
	if d > 0 {
		p.clock.Sleep(d)
	}
	return d
}

// Mark records t as the new reference point.
func (p *Pacer) Mark(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = t
}

// Last returns the current reference point.
func (p *Pacer) Last() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.last
}
