package config

import (
	"fmt"
	"strings"
)

var knownProviders = map[string]struct{}{
	"gemini":    {},
	"openai":    {},
	"anthropic": {},
}

// Validate checks the configuration for structural errors. It is called
// after ApplyDefaults and before Freeze; a config that passes here produces
// a usable frozen view.
func (c *Config) Validate() error {
	var errs []string

	if _, ok := knownProviders[c.Provider]; !ok {
		errs = append(errs, fmt.Sprintf("unknown provider %q", c.Provider))
	}
	if c.Model == "" {
		errs = append(errs, "model cannot be empty")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("temperature %v outside [0, 2]", c.Generation.Temperature))
	}
	if c.Generation.MaxOutputTokens < 0 {
		errs = append(errs, "max_output_tokens cannot be negative")
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache ttl cannot be negative")
	}
	if c.Cache.FloorTokens < 0 {
		errs = append(errs, "cache floor_tokens cannot be negative")
	}
	if c.Cache.SkipFloorConfidence < 0 || c.Cache.SkipFloorConfidence > 1 {
		errs = append(errs, fmt.Sprintf("skip_floor_confidence %v outside [0, 1]", c.Cache.SkipFloorConfidence))
	}
	switch c.Cache.Registry.Backend {
	case "memory":
	case "sqlite":
		if c.Cache.Registry.DBPath == "" {
			errs = append(errs, "sqlite registry requires db_path")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown registry backend %q", c.Cache.Registry.Backend))
	}
	if c.Upload.InlineMaxBytes < 0 {
		errs = append(errs, "inline_max_bytes cannot be negative")
	}
	if c.Upload.Concurrency < 0 {
		errs = append(errs, "upload concurrency cannot be negative")
	}
	for key, ov := range c.Limits.Overrides {
		if !strings.Contains(key, "/") {
			errs = append(errs, fmt.Sprintf("limits override key %q must be provider/tier", key))
		}
		if ov.RequestsPerMinute < 0 || ov.TokensPerMinute < 0 || ov.MinIntervalMS < 0 {
			errs = append(errs, fmt.Sprintf("limits override %q has negative values", key))
		}
		if ov.BurstFactor < 0 {
			errs = append(errs, fmt.Sprintf("limits override %q has negative burst factor", key))
		}
	}
	if c.Results.MaxRawBytes < 0 {
		errs = append(errs, "max_raw_bytes cannot be negative")
	}
	if c.Results.MinAnswerLength < 0 || c.Results.MaxAnswerLength < 0 {
		errs = append(errs, "answer length bounds cannot be negative")
	}
	if c.Results.MaxAnswerLength > 0 && c.Results.MinAnswerLength > c.Results.MaxAnswerLength {
		errs = append(errs, "min_answer_length exceeds max_answer_length")
	}
	switch c.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Telemetry.Logging.Level))
	}
	switch c.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Telemetry.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
