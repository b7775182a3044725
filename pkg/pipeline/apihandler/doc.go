// Package apihandler executes planned commands against provider adapters.
//
// The handler runs a fixed stage sequence per command: upload, cache,
// generate. The first two are conditional on the plan and on the adapter's
// capabilities; generation always runs. Stage transforms are immutable,
// so a failed stage never leaves a half-modified plan behind.
//
// Error handling splits two ways. Capability violations (a required upload
// against an adapter without uploads) surface as errors before any
// generation call. Generation failure, after the single fallback attempt,
// is carried inside the finalized command instead, so the result builder
// can emit the error envelope as the one source of truth for outcome.
package apihandler
