// Package ratelimit spaces out upstream traffic.
//
// Pacer enforces the minimum interval between two post fetches. Limiter
// implementations cap media downloads per time window:
//
//   - TokenBucket refills its full capacity once per period and suits bursts
//     followed by quiet time.
//   - SlidingWindow counts requests in a moving window and gives an even rate.
//
// All types take a clockwork.Clock so tests can drive time explicitly.
//
//	pacer := ratelimit.NewPacer(5*time.Second, nil)
//	waited := pacer.Wait()
//	// ... fetch ...
//	pacer.Mark(time.Now())
package ratelimit
