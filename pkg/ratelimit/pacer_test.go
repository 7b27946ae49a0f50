package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerFirstCallDoesNotWait(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewPacer(5*time.Second, clock)

	assert.Equal(t, time.Duration(0), p.Delay())
	assert.Equal(t, time.Duration(0), p.Wait())
	assert.Equal(t, clock.Now().Add(-10*time.Second), p.Last())
}

func TestPacerDelay(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    time.Duration
	}{
		{"just marked", 0, 5 * time.Second},
		{"partway", 2 * time.Second, 3 * time.Second},
		{"exactly the interval", 5 * time.Second, 0},
		{"long ago", time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := clockwork.NewFakeClock()
			p := NewPacer(5*time.Second, clock)
			p.Mark(clock.Now())
			clock.Advance(tt.elapsed)
			assert.Equal(t, tt.want, p.Delay())
		})
	}
}

func TestPacerWaitSleepsRemainder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewPacer(4*time.Second, clock)
	p.Mark(clock.Now())
	clock.Advance(time.Second)

	done := make(chan time.Duration, 1)
	go func() { done <- p.Wait() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(3 * time.Second)

	select {
	case waited := <-done:
		assert.Equal(t, 3*time.Second, waited)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestPacerZeroInterval(t *testing.T) {
	p := NewPacer(0, nil)
	p.Mark(time.Now())
	assert.Equal(t, time.Duration(0), p.Delay())

	neg := NewPacer(-time.Second, nil)
	assert.Equal(t, time.Duration(0), neg.Interval())
}
