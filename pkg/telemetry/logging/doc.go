// Package logging builds the process-wide structured logger.
//
// The logger is a plain *slog.Logger configured from LoggingConfig: level,
// output format, and optional source locations. A ReplaceAttr hook redacts
// credential-shaped values so provider API keys never reach log output
// even when passed accidentally as attribute values.
package logging
