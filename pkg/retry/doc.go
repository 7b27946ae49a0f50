// Package retry re-runs failing operations with exponential backoff.
//
// It is a thin layer over github.com/cenkalti/backoff/v4 that knows the
// module's error taxonomy: typed errors are retried only when their type is
// transient (network, rate limit, server), and context cancellation is
// never retried. Retries are opt-in; media downloads use them when
// download.retry_attempts is above zero.
package retry
