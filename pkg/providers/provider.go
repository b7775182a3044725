package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
)

// Generator is the one required capability: every provider adapter can
// generate. The API handler discovers the optional capabilities (Uploader,
// Cacher) by type assertion on the same value, the Go analogue of
// structural protocol checks.
//
// Implementations must respect context cancellation and must wrap every
// failure in this package's error types; raw transport or decode errors
// never cross the adapter boundary.
type Generator interface {
	// Provider returns the adapter's provider name ("gemini", "openai",
	// "anthropic").
	Provider() string

	// Generate executes one generation call with the final parts, config,
	// and optional cache reference.
	Generate(ctx context.Context, req *GenerateRequest) (*pipeline.RawResponse, error)
}

// Uploader is the optional upload capability. Adapters without it cause
// required upload placeholders to fail with a CapabilityError and optional
// ones to fall back to inline handling.
type Uploader interface {
	// UploadFile pushes one source's content to the provider and returns
	// the reference part that replaces its placeholder.
	UploadFile(ctx context.Context, src pipeline.Source) (pipeline.FileRefPart, error)
}

// Cacher is the optional caching capability. Its absence silently disables
// cache-related plan steps: caching is an optimization, never
// correctness-critical.
type Cacher interface {
	// CreateCache registers provider-side cached content and returns its
	// reference.
	CreateCache(ctx context.Context, model string, parts []pipeline.Part, ttl time.Duration) (pipeline.CacheReference, error)

	// GetCache looks up an existing cache. A nil reference with nil error
	// means the provider no longer has it.
	GetCache(ctx context.Context, id string) (*pipeline.CacheReference, error)
}

// GenerateRequest carries the neutral plan slice one generation call needs.
type GenerateRequest struct {
	Model    string
	Parts    []pipeline.Part
	Config   pipeline.GenerationConfig
	CacheRef *pipeline.CacheReference
}

// Factory builds the adapter for the configured provider. The returned
// value always satisfies Generator; callers probe Uploader and Cacher
// themselves.
type Factory func(cfg *config.Frozen) (Generator, error)

// New creates the adapter named by the frozen configuration.
func New(cfg *config.Frozen) (Generator, error) {
	factory, ok := factories[strings.ToLower(cfg.Provider())]
	if !ok {
		return nil, &ConfigError{
			Provider: cfg.Provider(),
			Field:    "provider",
			Message:  "no adapter registered",
		}
	}
	return factory(cfg)
}

var factories = map[string]Factory{}

// Register installs a factory for a provider name. Adapter packages call
// this from init; last registration wins, which lets tests substitute
// fakes.
func Register(name string, f Factory) {
	factories[strings.ToLower(name)] = f
}

// Registered reports the provider names with installed factories.
func Registered() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// SupportsUpload reports whether the adapter has the upload capability.
func SupportsUpload(g Generator) bool {
	_, ok := g.(Uploader)
	return ok
}

// SupportsCaching reports whether the adapter has the caching capability.
func SupportsCaching(g Generator) bool {
	_, ok := g.(Cacher)
	return ok
}

// ConfigError reports invalid provider configuration.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s", e.Provider, e.Field, e.Message)
}
