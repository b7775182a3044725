// Package telemetry defines the reporting protocol used by the command
// pipeline.
//
// The pipeline emits two kinds of observations: timings (how long an
// operation took) and metrics (a numeric value at a point in time). Both are
// routed through the Reporter interface so the core never depends on a
// concrete backend. When no reporter is configured, the shared no-op
// singleton from Noop() makes every call effectively free.
//
// Concrete backends live in subpackages:
//
//   - logging: structured slog-based logging
//   - metrics: Prometheus collectors
//
// Scopes are dot-separated paths ("pipeline.plan", "api.upload") threaded
// explicitly by callers; there is no implicit global scope state.
package telemetry
