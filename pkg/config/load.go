package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvAPIKey is the environment variable checked for an API key. A value here
// takes precedence over the config file.
const EnvAPIKey = "POLLUX_API_KEY"

// Load reads a yaml configuration file, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes yaml configuration bytes, applies environment overrides and
// defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{Cache: CacheConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyEnv(cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.APIKey = key
	}
}
