package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	errs "instagramdl/pkg/errors"
	"instagramdl/pkg/logger"
)

// Config holds retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// RetryIf decides whether an error is worth another attempt
	RetryIf func(error) bool
	Logger  logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      1.5,
		RetryIf:         DefaultRetryIf,
	}
}

// DefaultRetryIf retries typed errors whose type is retryable, and untyped
// errors other than context cancellation. Unknown typed errors are judged by
// their status code and download errors by their cause.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var e *errs.Error
	if errors.As(err, &e) {
		if e.Type == errs.ErrorTypeDownload && e.Err != nil {
			return DefaultRetryIf(e.Err)
		}
		if e.Type == errs.ErrorTypeUnknown {
			return errs.IsRetryableStatusCode(e.Code)
		}
		return errs.IsRetryable(e.Type)
	}
	return true
}

// Do runs operation until it succeeds, returns a non-retryable error, the
// retries are used up or ctx is done.
func Do(ctx context.Context, operationName string, operation func() error, cfg Config) error {
	bo := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		bo.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		bo.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		bo.Multiplier = cfg.Multiplier
	}
	bo.Reset()

	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	attempt := 0
	wrapped := func() error {
		attempt++
		err := operation()
		if err != nil && !retryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		log.WarnWithFields("Operation failed, retrying", map[string]interface{}{
			"operation":       operationName,
			"attempt":         attempt,
			"error":           err.Error(),
			"next_attempt_in": next.Round(time.Millisecond),
		})
	}

	err := backoff.RetryNotify(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, cfg.MaxRetries), ctx), notify)
	if err == nil && attempt > 1 {
		log.DebugWithFields("Operation succeeded after retry", map[string]interface{}{
			"operation": operationName,
			"attempt":   attempt,
		})
	}
	return err
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, operationName string, operation func() (T, error), cfg Config) (T, error) {
	var result T
	err := Do(ctx, operationName, func() error {
		var opErr error
		result, opErr = operation()
		return opErr
	}, cfg)
	return result, err
}
