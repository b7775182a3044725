package config

import "time"

// Default constants applied by ApplyDefaults.
const (
	DefaultProvider            = "gemini"
	DefaultModel               = "gemini-2.0-flash"
	DefaultTier                = "free"
	DefaultRequestConcurrency  = 4
	DefaultTemperature         = 0.7
	DefaultCacheTTL            = time.Hour
	DefaultSkipFloorConfidence = 0.8
	DefaultRegistryBackend     = "memory"
	DefaultInlineMaxBytes      = 10 << 20
	DefaultUploadConcurrency   = 4
	DefaultUploadPollInterval  = 500 * time.Millisecond
	DefaultUploadPollTimeout   = 2 * time.Minute
	DefaultMaxRawBytes         = 1 << 20
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultMetricsNamespace    = "pollux"
	DefaultMetricsSubsystem    = "pipeline"
)

// NewDefault returns a Config populated with defaults.
func NewDefault() *Config {
	cfg := &Config{
		Cache: CacheConfig{Enabled: true},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults. Explicitly
// configured values are never overwritten.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Tier == "" {
		c.Tier = DefaultTier
	}
	if c.RequestConcurrency == 0 {
		c.RequestConcurrency = DefaultRequestConcurrency
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = DefaultTemperature
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.SkipFloorConfidence == 0 {
		c.Cache.SkipFloorConfidence = DefaultSkipFloorConfidence
	}
	if c.Cache.Registry.Backend == "" {
		c.Cache.Registry.Backend = DefaultRegistryBackend
	}
	if c.Upload.InlineMaxBytes == 0 {
		c.Upload.InlineMaxBytes = DefaultInlineMaxBytes
	}
	if c.Upload.Concurrency == 0 {
		c.Upload.Concurrency = DefaultUploadConcurrency
	}
	if c.Upload.PollInterval == 0 {
		c.Upload.PollInterval = DefaultUploadPollInterval
	}
	if c.Upload.PollTimeout == 0 {
		c.Upload.PollTimeout = DefaultUploadPollTimeout
	}
	if c.Results.MaxRawBytes == 0 {
		c.Results.MaxRawBytes = DefaultMaxRawBytes
	}
	if c.Telemetry.Logging.Level == "" {
		c.Telemetry.Logging.Level = DefaultLogLevel
	}
	if c.Telemetry.Logging.Format == "" {
		c.Telemetry.Logging.Format = DefaultLogFormat
	}
	if c.Telemetry.Metrics.Namespace == "" {
		c.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Telemetry.Metrics.Subsystem == "" {
		c.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	for key, ov := range c.Limits.Overrides {
		if ov.BurstFactor == 0 {
			ov.BurstFactor = 1.0
			c.Limits.Overrides[key] = ov
		}
	}
}
