package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/telemetry"
)

// Key identifies one micro-limiter. Commands sharing a key share pacing
// state; everything else in the pipeline is single-owner.
type Key struct {
	Provider string
	Model    string
	Tier     string
}

// Registry owns the per-key micro-limiters for one process. There is no
// cross-process coordination: each process paces itself.
type Registry struct {
	mu       sync.Mutex
	limiters map[Key]*microLimiter
	reporter telemetry.Reporter
}

// NewRegistry creates an empty limiter registry.
func NewRegistry(reporter telemetry.Reporter) *Registry {
	return &Registry{
		limiters: make(map[Key]*microLimiter),
		reporter: telemetry.OrNoop(reporter),
	}
}

// Acquire suspends the calling goroutine until the constraint permits the
// next request on the key, then records the acquisition. It returns the
// time actually waited.
//
// tokensNeeded should be the plan's Max estimate: the token window is a
// safety-critical gate.
func (r *Registry) Acquire(ctx context.Context, key Key, rc pipeline.RateConstraint, tokensNeeded int) (time.Duration, error) {
	lim := r.limiterFor(key, rc)

	waited, err := lim.acquire(ctx, tokensNeeded)

	// Telemetry must never gate the request itself; the acquisition is
	// already recorded by the time this emits.
	r.reporter.RecordTiming("ratelimit.wait", waited, telemetry.Metadata{
		"provider": key.Provider,
		"model":    key.Model,
		"tier":     key.Tier,
	})
	return waited, err
}

func (r *Registry) limiterFor(key Key, rc pipeline.RateConstraint) *microLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lim, ok := r.limiters[key]; ok {
		return lim
	}
	lim := newMicroLimiter(rc)
	r.limiters[key] = lim
	return lim
}

// microLimiter is the per-key pacing state: the last-request time, a request
// budget, and an optional token window. The gate channel serializes same-key
// acquisitions so two commands can never compute the same "time since last
// request" and both proceed without waiting.
type microLimiter struct {
	gate chan struct{}

	requests    *rate.Limiter
	minInterval time.Duration
	tokens      *tokenWindow

	// lastRequest holds a monotonic timestamp (time.Now retains the
	// monotonic clock reading), so wall-clock adjustments cannot skew
	// spacing.
	lastRequest time.Time
}

func newMicroLimiter(rc pipeline.RateConstraint) *microLimiter {
	lim := &microLimiter{
		gate:        make(chan struct{}, 1),
		minInterval: rc.MinInterval,
	}
	if rc.RequestsPerMinute > 0 {
		burstFactor := rc.BurstFactor
		if burstFactor < 1 {
			burstFactor = 1
		}
		burst := int(burstFactor * float64(rc.RequestsPerMinute))
		if burst < 1 {
			burst = 1
		}
		lim.requests = rate.NewLimiter(rate.Limit(float64(rc.RequestsPerMinute)/60.0), burst)
	}
	if rc.TokensPerMinute > 0 {
		lim.tokens = newTokenWindow(rc.TokensPerMinute, time.Minute)
	}
	return lim
}

func (m *microLimiter) acquire(ctx context.Context, tokensNeeded int) (time.Duration, error) {
	start := time.Now()

	// Per-key exclusive gate: held across the whole wait.
	select {
	case m.gate <- struct{}{}:
	case <-ctx.Done():
		return time.Since(start), ctx.Err()
	}
	defer func() { <-m.gate }()

	now := time.Now()
	var wait time.Duration

	if m.minInterval > 0 && !m.lastRequest.IsZero() {
		if need := m.minInterval - now.Sub(m.lastRequest); need > wait {
			wait = need
		}
	}

	var reservation *rate.Reservation
	if m.requests != nil {
		reservation = m.requests.Reserve()
		if d := reservation.DelayFrom(now); d > wait {
			wait = d
		}
	}

	if m.tokens != nil {
		if d := m.tokens.waitTime(tokensNeeded, now); d > wait {
			wait = d
		}
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			if reservation != nil {
				reservation.Cancel()
			}
			return time.Since(start), ctx.Err()
		}
	}

	m.lastRequest = time.Now()
	if m.tokens != nil {
		m.tokens.add(tokensNeeded, m.lastRequest)
	}
	return time.Since(start), nil
}
