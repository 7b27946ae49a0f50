package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/scheduler"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker tallies the results of a batch of retrievals
type StatusTracker struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	total       int
	retrieved   int
	unavailable int
	failed      int
	files       int
	fileErrors  int
	startTime   time.Time
}

// NewStatusTracker creates a tracker expecting total requests
func NewStatusTracker(total int, clock clockwork.Clock) *StatusTracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StatusTracker{total: total, clock: clock, startTime: clock.Now()}
}

// Record adds one result to the tally
func (st *StatusTracker) Record(res *scheduler.Result) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch {
	case res.Err == nil:
		st.retrieved++
	case errs.IsUnavailable(res.Err):
		st.unavailable++
	default:
		st.failed++
	}
	st.files += len(res.Paths())
	st.fileErrors += len(res.DownloadErrors())
}

// Done returns how many results were recorded
func (st *StatusTracker) Done() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.retrieved + st.unavailable + st.failed
}

// Failed reports whether any request did not produce a post
func (st *StatusTracker) Failed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.unavailable+st.failed > 0
}

// GetProgress returns a formatted progress bar
func (st *StatusTracker) GetProgress() string {
	done := st.Done()
	filled := 0
	if st.total > 0 {
		filled = done * barWidth / st.total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, st.total)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return st.clock.Since(st.startTime)
}

// Summary returns a one-line description of the batch
func (st *StatusTracker) Summary() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	return fmt.Sprintf("%d retrieved, %d unavailable, %d failed, %d files saved, %d files failed in %s",
		st.retrieved, st.unavailable, st.failed, st.files, st.fileErrors,
		st.clock.Since(st.startTime).Round(time.Millisecond))
}

// PrintProgress prints the current progress line
func (st *StatusTracker) PrintProgress() {
	fmt.Fprintf(Output, "%s %s\n", Magenta("[PROGRESS]"), Yellow(st.GetProgress()))
}

// PrintSummary prints the batch summary
func (st *StatusTracker) PrintSummary() {
	if st.Failed() {
		PrintWarning(st.Summary())
		return
	}
	PrintSuccess(st.Summary())
}
