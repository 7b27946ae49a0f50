package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"instagramdl/pkg/config"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming capacity if so
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// New builds the limiter selected by cfg. Both algorithms allow
// RequestsPerMinute requests per minute.
func New(cfg config.RateLimitConfig, clock clockwork.Clock) Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Algorithm == config.AlgorithmSlidingWindow {
		return NewSlidingWindow(cfg.RequestsPerMinute, time.Minute, clock)
	}
	return NewTokenBucket(cfg.RequestsPerMinute, time.Minute, clock)
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	clock        clockwork.Clock
	mu           sync.Mutex
}

// NewTokenBucket creates a bucket of capacity tokens refilled in full every
// refillPeriod.
func NewTokenBucket(capacity int, refillPeriod time.Duration, clock clockwork.Clock) *TokenBucket {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   clock.Now(),
		clock:        clock,
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		untilRefill := tb.refillPeriod - tb.clock.Since(tb.lastRefill)
		tb.mu.Unlock()

		if err := sleep(ctx, tb.clock, untilRefill); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.clock.Now()
}

func (tb *TokenBucket) refill() {
	now := tb.clock.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	clock       clockwork.Clock
	mu          sync.Mutex
}

// NewSlidingWindow allows maxRequests within any windowSize span.
func NewSlidingWindow(maxRequests int, windowSize time.Duration, clock clockwork.Clock) *SlidingWindow {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		clock:       clock,
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.clock.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		var wait time.Duration
		if len(sw.requests) > 0 {
			wait = sw.windowSize - sw.clock.Since(sw.requests[0])
		}
		sw.mu.Unlock()

		if err := sleep(ctx, sw.clock, wait); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// cleanOldRequests drops requests that fell out of the window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		n := copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:n]
	}
}

// minSleep keeps Wait loops from spinning when the computed wait is zero.
const minSleep = 10 * time.Millisecond

func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d < minSleep {
		d = minSleep
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
