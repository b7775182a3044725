// Package results builds the stable ResultEnvelope from raw provider
// responses.
//
// Extraction is two-tier. Tier one is a chain of prioritized TransformSpec
// rules sorted by (priority descending, name ascending); the first
// transform that matches the payload and extracts successfully wins, and a
// transform whose extractor errors is recorded and skipped rather than
// aborting the chain. Tier two, the minimal projection, runs only when no
// tier-one transform succeeds and is guaranteed to produce an answer list
// from any payload whatsoever.
//
// Whichever tier wins, the final answer list is padded or truncated to the
// command's expected count. The count observed before normalization is
// recorded as a contract warning when it differs, preserving visibility
// into true extraction fidelity.
//
// Schema and contract validation are record-only: violations attach to the
// envelope as warnings and never turn a successful extraction into a
// failure. Only generation failure itself, carried in from the API
// handler, produces a status of "error".
package results
