// Package scheduler serializes post retrieval behind a FIFO queue.
//
// Submit never blocks. DrainOne takes the exclusive in-flight token, pops
// the oldest request, waits out the pacing interval, then runs the
// fetch, normalize and download pipeline to completion. Only one pipeline
// runs at a time per Scheduler, however many goroutines drain it.
//
// Completion handlers run on the draining goroutine after the in-flight
// token has been released, exactly once per request. They must not block
// indefinitely; a slow handler delays only its own drainer.
package scheduler
