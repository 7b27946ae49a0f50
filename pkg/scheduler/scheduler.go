package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"instagramdl/internal/downloader"
	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/instagram"
	"instagramdl/pkg/logger"
	"instagramdl/pkg/metadata"
	"instagramdl/pkg/metrics"
	"instagramdl/pkg/models"
	"instagramdl/pkg/normalizer"
	"instagramdl/pkg/ratelimit"
)

// ErrQueueEmpty is returned by DrainOne when nothing is queued.
var ErrQueueEmpty = errors.New("scheduler: queue is empty")

// CompletionFunc observes the outcome of one request together with the
// values supplied at submission.
type CompletionFunc func(res *Result, values map[string]any)

// MediaFetcher downloads every media URL of a post.
type MediaFetcher interface {
	FetchAll(ctx context.Context, urls []string) []downloader.File
}

// MetadataWriter persists a sidecar describing a retrieved post.
type MetadataWriter interface {
	Write(m *metadata.PostMetadata) (string, error)
}

// Options tunes a Scheduler. Zero values disable downloads and sidecars.
type Options struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Fetcher  MediaFetcher
	Metadata MetadataWriter
	Metrics  *metrics.Metrics
	Logger   logger.Logger
}

type request struct {
	id         string
	url        string
	onComplete CompletionFunc
	values     map[string]any
	queuedAt   time.Time
}

// Result is the outcome of one drained request.
type Result struct {
	RequestID    string
	URL          string
	Post         *models.Post
	Files        []downloader.File
	MetadataPath string
	Waited       time.Duration
	Duration     time.Duration
	Err          error
}

// Paths returns the local paths of the media that downloaded.
func (r *Result) Paths() []string {
	var paths []string
	for _, f := range r.Files {
		if f.Err == nil {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// DownloadErrors returns the failures of the media that did not download.
func (r *Result) DownloadErrors() []error {
	var failed []error
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f.Err)
		}
	}
	return failed
}

// Scheduler paces and serializes post retrieval.
type Scheduler struct {
	mu    sync.Mutex
	queue []*request
	wake  chan struct{}

	// inflight holds a token while a pipeline runs
	inflight chan struct{}

	clock    clockwork.Clock
	pacer    *ratelimit.Pacer
	session  instagram.Session
	fetcher  MediaFetcher
	metadata MetadataWriter
	metrics  *metrics.Metrics
	logger   logger.Logger
}

// New creates a Scheduler that fetches through session.
func New(session instagram.Session, opts Options) *Scheduler {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		wake:     make(chan struct{}, 1),
		inflight: make(chan struct{}, 1),
		clock:    clock,
		pacer:    ratelimit.NewPacer(opts.Interval, clock),
		session:  session,
		fetcher:  opts.Fetcher,
		metadata: opts.Metadata,
		metrics:  opts.Metrics,
		logger:   logger.OrDefault(opts.Logger).WithField("component", "scheduler"),
	}
}

// Submit appends a request to the queue. fn may be nil.
func (s *Scheduler) Submit(url string, fn CompletionFunc, values map[string]any) {
	req := &request{
		id:         uuid.NewString(),
		url:        url,
		onComplete: fn,
		values:     values,
		queuedAt:   s.clock.Now(),
	}

	s.mu.Lock()
	s.queue = append(s.queue, req)
	depth := len(s.queue)
	s.mu.Unlock()
	s.metrics.SetQueueDepth(depth)

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.logger.DebugWithFields("Request queued", map[string]interface{}{
		"request_id": req.id,
		"url":        url,
		"depth":      depth,
	})
}

// Len returns the number of queued requests.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) pop() *request {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	req := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.metrics.SetQueueDepth(len(s.queue))
	return req
}

// DrainOne runs the oldest queued request. It returns ErrQueueEmpty when
// there is nothing to do, and ctx.Err() if ctx has ended or ends before the
// in-flight token is free, in which case nothing is dequeued. Once the token is held
// the request runs to completion regardless of ctx.
//
// The returned error is the request's own failure, stamped with its URL.
// Media download failures do not fail the request; see Result.Files.
func (s *Scheduler) DrainOne(ctx context.Context) (*Result, error) {
	if s.Len() == 0 {
		return nil, ErrQueueEmpty
	}
	// select picks randomly when both cases are ready
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case s.inflight <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// popping under the token keeps execution order equal to queue order
	req := s.pop()
	if req == nil {
		<-s.inflight
		return nil, ErrQueueEmpty
	}

	res := s.runInFlight(context.WithoutCancel(ctx), req)

	if req.onComplete != nil {
		req.onComplete(res, req.values)
	}
	return res, res.Err
}

func (s *Scheduler) runInFlight(ctx context.Context, req *request) *Result {
	defer func() { <-s.inflight }()

	log := s.logger.WithFields(map[string]interface{}{
		"request_id": req.id,
		"url":        req.url,
	})

	logger.LogPacing(log, req.url, s.pacer.Delay())
	waited := s.pacer.Wait()

	start := s.clock.Now()
	res := s.execute(ctx, req, log)
	res.Waited = waited
	res.Duration = s.clock.Since(start)

	s.pacer.Mark(s.clock.Now())
	s.metrics.ObserveRequest(outcome(res.Err), res.Waited, res.Duration, len(res.Paths()), len(res.DownloadErrors()))
	return res
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeRetrieved
	case errs.IsUnavailable(err):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeFailed
	}
}

func (s *Scheduler) execute(ctx context.Context, req *request, log logger.Logger) *Result {
	res := &Result{RequestID: req.id, URL: req.url}

	payload, err := s.session.Fetch(ctx, req.url)
	if err != nil {
		res.Err = errs.WithURL(err, req.url)
		if errs.IsUnavailable(err) {
			log.Warn("Post is unavailable")
		} else {
			log.WithError(err).Error("Fetch failed")
		}
		return res
	}

	post, err := normalizer.NormalizePayload(payload)
	if err != nil {
		res.Err = errs.WithURL(err, req.url)
		log.WithError(err).WithField("shape", string(payload.Shape)).Error("Normalization failed")
		return res
	}
	res.Post = post

	if s.fetcher != nil {
		res.Files = s.fetcher.FetchAll(ctx, post.MediaURLs())
	}

	if s.metadata != nil {
		res.MetadataPath = s.writeMetadata(res, log)
	}

	log.InfoWithFields("Post retrieved", map[string]interface{}{
		"shortcode": post.Shortcode,
		"kind":      string(post.Kind),
		"author":    post.Author.Username,
		"files":     len(res.Paths()),
		"failed":    len(res.DownloadErrors()),
	})
	return res
}

// writeMetadata stores the sidecar. A failure here is logged and leaves the
// request successful.
func (s *Scheduler) writeMetadata(res *Result, log logger.Logger) string {
	var failed []string
	for _, f := range res.Files {
		if f.Err != nil {
			failed = append(failed, f.URL)
		}
	}

	path, err := s.metadata.Write(metadata.New(res.URL, res.Post, res.Paths(), failed))
	if err != nil {
		log.WithError(err).Warn("Failed to write metadata")
		return ""
	}
	return path
}

// Run drains the queue until ctx is done, sleeping while it is empty.
// Individual request failures are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.DrainOne(ctx)
		switch {
		case errors.Is(err, ErrQueueEmpty):
			select {
			case <-s.wake:
			case <-ctx.Done():
				return ctx.Err()
			}
		case res == nil && err != nil:
			return err
		case err != nil:
			s.logger.WithError(err).Debug("Request failed, continuing")
		}
	}
}

// Retrieve submits url and drains until its result is available.
func (s *Scheduler) Retrieve(ctx context.Context, url string) (*Result, error) {
	done := make(chan *Result, 1)
	s.Submit(url, func(res *Result, _ map[string]any) { done <- res }, nil)

	for {
		select {
		case res := <-done:
			return res, res.Err
		default:
		}

		if res, err := s.DrainOne(ctx); res == nil && err != nil {
			// queue empty or token unavailable: another drainer holds the request
			select {
			case res := <-done:
				return res, res.Err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}
