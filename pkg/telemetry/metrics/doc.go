// Package metrics implements the telemetry sink on Prometheus collectors.
//
// The Reporter satisfies telemetry.Reporter, so the pipeline stays
// backend-agnostic: when metrics are disabled the pipeline gets the no-op
// sink instead and every recording call is free.
package metrics
