// Package tokens implements range-based token estimation for the planner.
//
// Estimation adapters are pure functions over resolved sources and prompts:
// no I/O, no provider SDK calls, deterministic output. Each provider has a
// cost profile (characters-per-token ratios, flat image costs, per-KiB
// heuristics for binary formats); one shared algorithm turns a profile into
// a TokenEstimate.
//
// Design rules:
//
//   - Monotonic: adding a source or a prompt never decreases any bound.
//   - Confidence only falls for mixed content, never rises.
//   - Unknown MIME types fall back to a conservative byte heuristic with
//     minimum confidence, instead of failing.
//
// The planner consumes Max for all safety-critical gating; Expected exists
// for display.
package tokens
