package ratelimit

import "time"

// tokenWindow tracks estimated token spend over a sliding window. It is the
// tokens-per-minute half of dual limiting; callers must serialize access
// (the micro-limiter's gate does).
type tokenWindow struct {
	limit  int
	window time.Duration

	entries []windowEntry
}

type windowEntry struct {
	at     time.Time
	tokens int
}

func newTokenWindow(limit int, window time.Duration) *tokenWindow {
	return &tokenWindow{limit: limit, window: window}
}

// waitTime returns how long the caller must wait before spending n tokens
// without exceeding the window limit. Requests larger than the whole limit
// wait a full window: they can never truly fit, and a full drain is the
// closest legal approximation.
func (w *tokenWindow) waitTime(n int, now time.Time) time.Duration {
	w.evict(now)

	if n >= w.limit {
		if len(w.entries) == 0 {
			return 0
		}
		return w.entries[len(w.entries)-1].at.Add(w.window).Sub(now)
	}

	sum := 0
	for _, e := range w.entries {
		sum += e.tokens
	}
	if sum+n <= w.limit {
		return 0
	}

	// Walk oldest-first until enough spend has aged out.
	excess := sum + n - w.limit
	freed := 0
	for _, e := range w.entries {
		freed += e.tokens
		if freed >= excess {
			return e.at.Add(w.window).Sub(now)
		}
	}
	return w.window
}

// add records a spend at time t.
func (w *tokenWindow) add(n int, t time.Time) {
	if n <= 0 {
		return
	}
	w.entries = append(w.entries, windowEntry{at: t, tokens: n})
}

func (w *tokenWindow) evict(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.entries) && w.entries[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = append(w.entries[:0], w.entries[i:]...)
	}
}
