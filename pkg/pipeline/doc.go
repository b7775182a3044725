// Package pipeline defines the command pipeline's data model and the thin
// executor that sequences it.
//
// A request moves through immutable command variants:
//
//	InitialCommand -> ResolvedCommand -> PlannedCommand -> FinalizedCommand -> CompletedCommand
//
// Each transition is owned by one handler: the planner builds an
// ExecutionPlan, the rate-limit handler paces the call, the API handler
// executes upload/cache/generate stages against a provider, and the result
// builder converts the raw response into a ResultEnvelope. Source resolution
// happens outside the core; the pipeline starts from already-resolved
// sources.
//
// Every artifact in this package is single-owner and immutable after
// construction. Stage transitions construct new values; the only shared
// mutable state in the whole system is the per-key limiter state inside the
// ratelimit subpackage.
package pipeline
