// Package cachestore persists provider cache references between commands.
//
// A provider-side cache outlives the command that created it; the registry
// maps the planner's content digest to the provider's cache reference so
// later commands over the same content reuse it instead of paying creation
// overhead again. Two backends exist: an in-process map and a SQLite
// database for reuse across restarts. A cron-driven Sweeper prunes
// references past their expiry.
//
// The registry stores references; it never talks to a provider. Whether a
// referenced provider-side cache still exists is the cache stage's problem.
package cachestore
