package downloader

import (
	"context"
	"io"
	"time"

	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/logger"
	"instagramdl/pkg/ratelimit"
	"instagramdl/pkg/retry"
)

// MediaSource streams the bytes behind a media URL.
type MediaSource interface {
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// MediaStore persists a stream under a fresh, never reused name.
type MediaStore interface {
	Save(r io.Reader, ext string) (string, int64, error)
}

// File is the outcome for one media URL: a local Path, or Err.
type File struct {
	URL      string
	Path     string
	Size     int64
	Err      error
	Duration time.Duration
}

// Options tune a Fetcher. Zero values give one worker, no rate limit and no
// retries.
type Options struct {
	Workers int
	Limiter ratelimit.Limiter
	// Retry enables retries when non-nil
	Retry  *retry.Config
	Logger logger.Logger
}

// Fetcher downloads media URLs into a store.
type Fetcher struct {
	source  MediaSource
	store   MediaStore
	workers int
	limiter ratelimit.Limiter
	retry   *retry.Config
	logger  logger.Logger
}

// NewFetcher creates a Fetcher
func NewFetcher(source MediaSource, store MediaStore, opts Options) *Fetcher {
	f := &Fetcher{
		source:  source,
		store:   store,
		workers: opts.Workers,
		limiter: opts.Limiter,
		retry:   opts.Retry,
		logger:  logger.OrDefault(opts.Logger).WithField("component", "downloader"),
	}
	if f.workers < 1 {
		f.workers = 1
	}
	return f
}

// Fetch downloads a single URL and returns the local path. Failures are
// DownloadErrors wrapping the cause.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	file := f.fetchOne(ctx, job{url: url})
	return file.Path, file.Err
}

// FetchAll downloads every URL concurrently and returns one File per URL in
// input order. Every URL is attempted; one failure does not stop the rest.
// It returns only after all downloads have finished.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []File {
	files := make([]File, len(urls))
	if len(urls) == 0 {
		return files
	}

	workers := f.workers
	if workers > len(urls) {
		workers = len(urls)
	}

	pool := newWorkerPool(ctx, workers, f.fetchOne, f.logger)
	pool.Start()

	submitted := make([]bool, len(urls))
	go func() {
		defer pool.Stop()
		for i, u := range urls {
			if err := pool.Submit(job{index: i, url: u}); err != nil {
				return
			}
			submitted[i] = true
		}
	}()

	for r := range pool.Results() {
		files[r.index] = r.file
	}

	// Results is closed only after the submitting goroutine returned, so
	// submitted is safe to read here.
	for i, u := range urls {
		if !submitted[i] {
			files[i] = File{URL: u, Err: errs.Download(u, ctx.Err())}
		}
	}

	failed := 0
	for _, file := range files {
		if file.Err != nil {
			failed++
		}
	}
	f.logger.InfoWithFields("Media download finished", map[string]interface{}{
		"total":  len(urls),
		"failed": failed,
	})
	return files
}

func (f *Fetcher) fetchOne(ctx context.Context, j job) File {
	start := time.Now()
	file := File{URL: j.url}

	var err error
	if f.retry != nil {
		err = retry.Do(ctx, "media download", func() error {
			return f.attempt(ctx, &file)
		}, *f.retry)
	} else {
		err = f.attempt(ctx, &file)
	}

	file.Duration = time.Since(start)
	if err != nil {
		if !errs.IsDownload(err) {
			err = errs.Download(j.url, err)
		}
		file.Err = err
		file.Path = ""
	}

	logger.LogMedia(f.logger, j.url, file.Path, file.Err)
	return file
}

func (f *Fetcher) attempt(ctx context.Context, file *File) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, _, err := f.source.Download(ctx, file.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	path, n, err := f.store.Save(body, extFor(file.URL))
	if err != nil {
		return err
	}
	file.Path = path
	file.Size = n
	return nil
}
