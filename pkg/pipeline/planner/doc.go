// Package planner builds immutable execution plans from resolved commands.
//
// Planning is the boundary between "what the caller asked for" and "what
// the API handler will do": token estimation, inline-vs-upload payload
// assembly, cache-policy resolution, rate-constraint lookup from static
// provider/tier tables, and optional fallback derivation all happen here,
// with no network I/O.
//
// Safety-critical decisions (cache gating) read the estimate's Max bound
// only. The fallback plan, when present, is strictly simpler than the
// primary: no cache, no uploads, so it can never fail for a capability the
// primary lacked.
package planner
