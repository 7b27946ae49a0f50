package downloader

import (
	"context"
	"fmt"
	"sync"

	"instagramdl/pkg/logger"
)

// job is one media URL together with its position in discovery order.
type job struct {
	index int
	url   string
}

// jobResult pairs a finished job with its outcome.
type jobResult struct {
	index int
	file  File
}

// workerPool runs a fixed number of workers over a job channel. It serves a
// single FetchAll call: Start, Submit each job, then Stop, while the caller
// drains Results.
type workerPool struct {
	numWorkers  int
	jobQueue    chan job
	resultQueue chan jobResult
	wg          sync.WaitGroup
	ctx         context.Context
	process     func(ctx context.Context, j job) File
	logger      logger.Logger
}

func newWorkerPool(ctx context.Context, numWorkers int, process func(context.Context, job) File, log logger.Logger) *workerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &workerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan job, numWorkers*2),
		resultQueue: make(chan jobResult, numWorkers),
		ctx:         ctx,
		process:     process,
		logger:      log,
	}
}

// Start launches the workers
func (wp *workerPool) Start() {
	wp.logger.DebugWithFields("Starting download workers", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for in-progress jobs and closes Results.
func (wp *workerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

// Submit queues a job unless the context is already done.
func (wp *workerPool) Submit(j job) error {
	select {
	case wp.jobQueue <- j:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("download cancelled: %w", wp.ctx.Err())
	}
}

// Results returns the result channel
func (wp *workerPool) Results() <-chan jobResult {
	return wp.resultQueue
}

func (wp *workerPool) worker(id int) {
	defer wp.wg.Done()

	for j := range wp.jobQueue {
		wp.logger.DebugWithFields("Worker processing media", map[string]interface{}{
			"worker_id": id,
			"media_url": j.url,
		})
		// every queued job reports back, even after cancellation, so the
		// caller sees one outcome per URL
		wp.resultQueue <- jobResult{index: j.index, file: wp.process(wp.ctx, j)}
	}
}
