// Package ratelimit enforces per-(provider, model, tier) request pacing.
//
// Each key owns a micro-limiter combining three gates: a minimum
// inter-request interval anchored to the last-request monotonic timestamp,
// a requests-per-minute budget (golang.org/x/time/rate, with burst scaled
// by the constraint's burst factor), and an optional tokens-per-minute
// sliding window fed with estimated Max tokens.
//
// Same-key acquisitions are serialized by a per-key exclusive gate held
// across the whole wait, so two concurrent commands can never both observe
// a stale last-request time and proceed unpaced. Waits suspend the
// goroutine and honor context cancellation; there are no blocking sleeps
// outside the select.
//
// The wait duration is emitted as the "ratelimit.wait" telemetry timing
// after the acquisition is recorded, so emission can never delay a request.
package ratelimit
