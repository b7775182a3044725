package config

import (
	"fmt"
	"time"
)

// Frozen is the immutable configuration view the pipeline consumes. It is
// produced once by Freeze; the pipeline never re-resolves configuration
// mid-flight, so an in-flight command always sees one consistent snapshot.
//
// All accessors return copies; nothing reachable from a Frozen can mutate
// the snapshot.
type Frozen struct {
	cfg Config
}

// Freeze validates the config and returns its immutable view. The input is
// deep-copied: later mutation of c does not affect the snapshot.
func Freeze(c *Config) (*Frozen, error) {
	if c == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	cp := *c
	cp.ApplyDefaults()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	cp.Extra = copyStringMap(c.Extra)
	cp.Limits.Overrides = copyOverrides(c.Limits.Overrides)
	cp.Results.RequiredFields = copyStrings(c.Results.RequiredFields)
	return &Frozen{cfg: cp}, nil
}

// Provider returns the active provider name.
func (f *Frozen) Provider() string { return f.cfg.Provider }

// Model returns the model identifier.
func (f *Frozen) Model() string { return f.cfg.Model }

// APIKey returns the provider credential.
func (f *Frozen) APIKey() string { return f.cfg.APIKey }

// Tier returns the account tier for rate-constraint keying.
func (f *Frozen) Tier() string { return f.cfg.Tier }

// RequestConcurrency returns the command-level concurrency bound.
func (f *Frozen) RequestConcurrency() int { return f.cfg.RequestConcurrency }

// Temperature returns the sampling temperature.
func (f *Frozen) Temperature() float64 { return f.cfg.Generation.Temperature }

// MaxOutputTokens returns the completion length cap, zero for provider
// default.
func (f *Frozen) MaxOutputTokens() int { return f.cfg.Generation.MaxOutputTokens }

// SystemPrompt returns the configured system prompt.
func (f *Frozen) SystemPrompt() string { return f.cfg.Generation.SystemPrompt }

// CachingEnabled reports whether the planner may attach cache strategies.
func (f *Frozen) CachingEnabled() bool { return f.cfg.Cache.Enabled }

// CacheTTL returns the requested cache lifetime.
func (f *Frozen) CacheTTL() time.Duration { return f.cfg.Cache.TTL }

// CacheFloorTokens returns the explicit floor override, zero when unset.
func (f *Frozen) CacheFloorTokens() int { return f.cfg.Cache.FloorTokens }

// CacheSkipFloorConfidence returns the confidence threshold for
// floor-based cache skipping.
func (f *Frozen) CacheSkipFloorConfidence() float64 { return f.cfg.Cache.SkipFloorConfidence }

// CacheIgnoreFloor reports whether floor-based skipping is disabled.
func (f *Frozen) CacheIgnoreFloor() bool { return f.cfg.Cache.IgnoreFloor }

// AllowHistoryCaching reports the opt-out from first-turn-only shared-cache
// creation.
func (f *Frozen) AllowHistoryCaching() bool { return f.cfg.Cache.AllowHistoryCaching }

// RegistryBackend returns the cache-registry backend name.
func (f *Frozen) RegistryBackend() string { return f.cfg.Cache.Registry.Backend }

// RegistryDBPath returns the sqlite registry path.
func (f *Frozen) RegistryDBPath() string { return f.cfg.Cache.Registry.DBPath }

// RegistryPruneSchedule returns the cron expression for expiry sweeps.
func (f *Frozen) RegistryPruneSchedule() string { return f.cfg.Cache.Registry.PruneSchedule }

// InlineMaxBytes returns the inline-vs-upload size threshold.
func (f *Frozen) InlineMaxBytes() int64 { return f.cfg.Upload.InlineMaxBytes }

// UploadConcurrency returns the per-command upload fan-out bound.
func (f *Frozen) UploadConcurrency() int { return f.cfg.Upload.Concurrency }

// UploadPollInterval returns the initial upload-activation poll interval.
func (f *Frozen) UploadPollInterval() time.Duration { return f.cfg.Upload.PollInterval }

// UploadPollTimeout returns the total upload-activation wait bound.
func (f *Frozen) UploadPollTimeout() time.Duration { return f.cfg.Upload.PollTimeout }

// RateOverride returns the user override for a provider/tier pair, if any.
func (f *Frozen) RateOverride(provider, tier string) (RateOverride, bool) {
	ov, ok := f.cfg.Limits.Overrides[provider+"/"+tier]
	return ov, ok
}

// MaxRawBytes returns the raw-response truncation ceiling.
func (f *Frozen) MaxRawBytes() int { return f.cfg.Results.MaxRawBytes }

// DiagnosticsEnabled reports whether envelopes carry the extraction audit
// trail.
func (f *Frozen) DiagnosticsEnabled() bool { return f.cfg.Results.Diagnostics }

// SchemaPath returns the record-only JSON Schema path, empty when disabled.
func (f *Frozen) SchemaPath() string { return f.cfg.Results.SchemaPath }

// AnswerLengthBounds returns the contract's per-answer length bounds; zero
// disables a bound.
func (f *Frozen) AnswerLengthBounds() (min, max int) {
	return f.cfg.Results.MinAnswerLength, f.cfg.Results.MaxAnswerLength
}

// RequiredFields returns a copy of the contract's required structured-data
// keys.
func (f *Frozen) RequiredFields() []string {
	return copyStrings(f.cfg.Results.RequiredFields)
}

// LogLevel returns the configured log level.
func (f *Frozen) LogLevel() string { return f.cfg.Telemetry.Logging.Level }

// LogFormat returns the configured log format.
func (f *Frozen) LogFormat() string { return f.cfg.Telemetry.Logging.Format }

// MetricsEnabled reports whether Prometheus collectors are registered.
func (f *Frozen) MetricsEnabled() bool { return f.cfg.Telemetry.Metrics.Enabled }

// MetricsNamespace returns the metric name prefix.
func (f *Frozen) MetricsNamespace() string { return f.cfg.Telemetry.Metrics.Namespace }

// MetricsSubsystem returns the metric subsystem prefix.
func (f *Frozen) MetricsSubsystem() string { return f.cfg.Telemetry.Metrics.Subsystem }

// Extra returns a value from the open extension map.
func (f *Frozen) Extra(key string) (string, bool) {
	v, ok := f.cfg.Extra[key]
	return v, ok
}

// ExtraMap returns a copy of the whole extension map.
func (f *Frozen) ExtraMap() map[string]string {
	return copyStringMap(f.cfg.Extra)
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyOverrides(m map[string]RateOverride) map[string]RateOverride {
	if m == nil {
		return nil
	}
	out := make(map[string]RateOverride, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
