package telemetry

import (
	"sync"
	"testing"
	"time"
)

type captureReporter struct {
	mu      sync.Mutex
	timings []capturedTiming
}

type capturedTiming struct {
	scope    string
	duration time.Duration
	meta     Metadata
}

func (c *captureReporter) RecordTiming(scope string, d time.Duration, meta Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timings = append(c.timings, capturedTiming{scope, d, meta})
}

func (c *captureReporter) RecordMetric(string, float64, Metadata) {}

func TestOrNoop(t *testing.T) {
	if OrNoop(nil) != Noop() {
		t.Error("nil should resolve to the shared no-op")
	}
	r := &captureReporter{}
	if OrNoop(r) != Reporter(r) {
		t.Error("non-nil reporter replaced")
	}
}

func TestNoopIsSafe(t *testing.T) {
	r := Noop()
	r.RecordTiming("x", time.Second, nil)
	r.RecordMetric("y", 1.5, Metadata{"k": "v"})
}

func TestTimer(t *testing.T) {
	r := &captureReporter{}
	timer := StartTimer(r, "api.generate")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.Stop(Metadata{"provider": "gemini"})

	if elapsed < 5*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 5ms", elapsed)
	}
	if len(r.timings) != 1 {
		t.Fatalf("timings = %d, want 1", len(r.timings))
	}
	got := r.timings[0]
	if got.scope != "api.generate" {
		t.Errorf("scope = %q", got.scope)
	}
	if got.duration != elapsed {
		t.Errorf("recorded %v, returned %v", got.duration, elapsed)
	}
	if got.meta["provider"] != "gemini" {
		t.Errorf("meta = %v", got.meta)
	}
}

func TestTimerWithNilReporter(t *testing.T) {
	timer := StartTimer(nil, "scope")
	if timer.Stop(nil) < 0 {
		t.Error("negative elapsed")
	}
}
