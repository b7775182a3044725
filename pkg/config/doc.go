// Package config loads, validates, and freezes Pollux configuration.
//
// Configuration is resolved once, outside the pipeline: yaml file, then
// environment overrides, then defaults, then validation. The pipeline only
// ever consumes the immutable Frozen view, so no stage can observe a
// half-updated config and nothing reloads mid-request.
//
// A Watcher built on fsnotify notifies long-lived embedders when the file
// changes; the new snapshot applies to subsequent commands only.
package config
