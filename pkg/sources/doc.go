// Package sources resolves raw inputs into pipeline sources.
//
// Resolution happens once, before a command enters the pipeline: files are
// stat-ed, MIME types derived from extensions, and content access deferred
// behind loaders so nothing is read until the planner assembles parts. The
// pipeline core never touches the filesystem itself.
package sources
