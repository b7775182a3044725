package config

import "time"

// Config is the root configuration for the Pollux pipeline. It is the
// mutable, yaml-facing form; the pipeline itself only ever sees the
// immutable Frozen view produced by Freeze.
type Config struct {
	// Provider selects the active provider adapter ("gemini", "openai",
	// "anthropic").
	// Default: "gemini"
	Provider string `yaml:"provider"`

	// Model is the model identifier passed to the provider.
	// Default: "gemini-2.0-flash"
	Model string `yaml:"model"`

	// APIKey authenticates against the provider. May also be supplied via
	// the POLLUX_API_KEY environment variable, which takes precedence.
	APIKey string `yaml:"api_key"`

	// Tier is the account tier used for rate-constraint lookup
	// ("free", "tier1", "tier2", ...).
	// Default: "free"
	Tier string `yaml:"tier"`

	// RequestConcurrency bounds how many commands execute at once.
	// Zero or negative means unbounded.
	// Default: 4
	RequestConcurrency int `yaml:"request_concurrency"`

	// Generation contains generation-call parameters.
	Generation GenerationConfig `yaml:"generation"`

	// Cache contains cache-policy settings.
	Cache CacheConfig `yaml:"cache"`

	// Upload contains upload-stage settings.
	Upload UploadConfig `yaml:"upload"`

	// Limits contains per-provider/tier rate overrides.
	Limits LimitsConfig `yaml:"limits"`

	// Results contains result-builder settings.
	Results ResultsConfig `yaml:"results"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Extra is an open extension map threaded to provider adapters
	// untouched.
	Extra map[string]string `yaml:"extra"`
}

// GenerationConfig contains generation-call parameters.
type GenerationConfig struct {
	// Temperature is the sampling temperature, in [0, 2].
	// Default: 0.7
	Temperature float64 `yaml:"temperature"`

	// MaxOutputTokens caps the completion length. Zero means provider
	// default.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// SystemPrompt is prepended to every request when non-empty.
	SystemPrompt string `yaml:"system_prompt"`
}

// CacheConfig contains cache-policy settings.
type CacheConfig struct {
	// Enabled controls whether the planner may attach a cache strategy.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TTL is the requested cache lifetime.
	// Default: 1h
	TTL time.Duration `yaml:"ttl"`

	// FloorTokens overrides the minimum estimated size (Max bound) worth
	// caching. Zero means use the model capability minimum, falling back
	// to the 4096-token hard default.
	FloorTokens int `yaml:"floor_tokens"`

	// SkipFloorConfidence is the estimate-confidence threshold at or
	// above which the floor is trusted enough to skip cache creation.
	// Default: 0.8
	SkipFloorConfidence float64 `yaml:"skip_floor_confidence"`

	// IgnoreFloor disables floor-based skipping entirely: caching is
	// attempted regardless of estimated size.
	IgnoreFloor bool `yaml:"ignore_floor"`

	// ForceFirstTurnOnly is the default for shared-cache creation; set
	// AllowHistoryCaching to opt out and attempt caching on later turns.
	AllowHistoryCaching bool `yaml:"allow_history_caching"`

	// Registry configures the cache-reference registry backend.
	Registry RegistryConfig `yaml:"registry"`
}

// RegistryConfig configures where cache references are remembered between
// commands.
type RegistryConfig struct {
	// Backend selects the registry implementation: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// DBPath is the SQLite database path. Required when Backend is
	// "sqlite".
	DBPath string `yaml:"db_path"`

	// PruneSchedule is a cron expression for sweeping expired references
	// (e.g. "0 * * * *" for hourly). Empty disables scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// UploadConfig contains upload-stage settings.
type UploadConfig struct {
	// InlineMaxBytes is the largest source embedded inline; anything
	// bigger becomes an upload placeholder.
	// Default: 10 MiB
	InlineMaxBytes int64 `yaml:"inline_max_bytes"`

	// Concurrency bounds the upload fan-out within one command.
	// Default: 4
	Concurrency int `yaml:"concurrency"`

	// PollInterval is the initial interval for polling a provider-side
	// upload until it becomes active. Backs off exponentially.
	// Default: 500ms
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollTimeout bounds the total wait for an upload to become active.
	// Default: 2m
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// LimitsConfig contains rate-limiting configuration.
type LimitsConfig struct {
	// Overrides maps "provider/tier" keys to rate overrides that beat
	// the built-in tier tables.
	Overrides map[string]RateOverride `yaml:"overrides"`
}

// RateOverride replaces the static tier-table constraint for one
// provider/tier pair.
type RateOverride struct {
	// RequestsPerMinute is the sustained request rate. Zero disables
	// request limiting.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// TokensPerMinute caps estimated token throughput. Zero disables
	// token limiting.
	TokensPerMinute int `yaml:"tokens_per_minute"`

	// MinIntervalMS is the minimum spacing between requests in
	// milliseconds.
	MinIntervalMS int `yaml:"min_interval_ms"`

	// BurstFactor scales the short-term burst allowance.
	// Default: 1.0
	BurstFactor float64 `yaml:"burst_factor"`
}

// ResultsConfig contains result-builder settings.
type ResultsConfig struct {
	// MaxRawBytes is the raw-response size ceiling; larger responses are
	// truncated before transform matching.
	// Default: 1 MiB
	MaxRawBytes int `yaml:"max_raw_bytes"`

	// Diagnostics enables the full extraction audit trail in envelopes.
	Diagnostics bool `yaml:"diagnostics"`

	// SchemaPath points to a JSON Schema applied record-only to
	// extraction output. Empty disables schema validation.
	SchemaPath string `yaml:"schema_path"`

	// MinAnswerLength and MaxAnswerLength bound individual answers in the
	// extraction contract. Zero disables the corresponding check.
	MinAnswerLength int `yaml:"min_answer_length"`
	MaxAnswerLength int `yaml:"max_answer_length"`

	// RequiredFields names keys the extraction contract expects in
	// structured data. Findings are record-only, like the length bounds.
	RequiredFields []string `yaml:"required_fields"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus reporter.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "text"
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus reporter.
type MetricsConfig struct {
	// Enabled controls whether Prometheus collectors are registered.
	Enabled bool `yaml:"enabled"`

	// Namespace and Subsystem prefix every metric name.
	// Defaults: "pollux", "pipeline"
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}
