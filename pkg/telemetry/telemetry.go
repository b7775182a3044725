package telemetry

import "time"

// Metadata carries free-form key/value context attached to a telemetry event.
// Values are typically provider names, model identifiers, or stage labels and
// end up as labels or attributes in the configured backend.
type Metadata map[string]string

// Reporter is the sink for all pipeline telemetry.
//
// The core pipeline emits timings and metrics through this interface without
// knowing anything about the backend. Implementations must be safe for
// concurrent use and must never block the caller for longer than it takes to
// enqueue the observation.
//
// Scopes are dot-separated paths identifying where in the pipeline the event
// originated, for example "pipeline.plan", "ratelimit.wait", or
// "api.generate".
type Reporter interface {
	// RecordTiming records the duration of a completed operation under the
	// given scope.
	RecordTiming(scope string, duration time.Duration, meta Metadata)

	// RecordMetric records a point-in-time numeric observation under the
	// given scope.
	RecordMetric(scope string, value float64, meta Metadata)
}

// noopReporter discards all observations.
type noopReporter struct{}

func (noopReporter) RecordTiming(string, time.Duration, Metadata) {}
func (noopReporter) RecordMetric(string, float64, Metadata)       {}

var noop Reporter = noopReporter{}

// Noop returns the shared no-op Reporter. It is injected wherever no real
// reporter is configured so call sites never need a nil check.
func Noop() Reporter {
	return noop
}

// OrNoop returns r if non-nil, otherwise the shared no-op Reporter.
func OrNoop(r Reporter) Reporter {
	if r == nil {
		return noop
	}
	return r
}

// Timer measures the duration of a single operation and reports it on Stop.
//
// Example:
//
//	t := telemetry.StartTimer(reporter, "api.generate")
//	defer t.Stop(telemetry.Metadata{"provider": "gemini"})
type Timer struct {
	reporter Reporter
	scope    string
	start    time.Time
}

// StartTimer begins timing an operation under the given scope.
func StartTimer(r Reporter, scope string) *Timer {
	return &Timer{
		reporter: OrNoop(r),
		scope:    scope,
		start:    time.Now(),
	}
}

// Stop records the elapsed time since StartTimer and returns it.
func (t *Timer) Stop(meta Metadata) time.Duration {
	elapsed := time.Since(t.start)
	t.reporter.RecordTiming(t.scope, elapsed, meta)
	return elapsed
}
