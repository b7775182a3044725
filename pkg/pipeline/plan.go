package pipeline

import (
	"fmt"
	"time"
)

// Part is one element of an execution plan's ordered payload. Variants are a
// closed set: TextPart, FilePlaceholder, FileRefPart, CacheReferencePart.
//
// Parts tuples are copy-on-transform: the upload stage produces a new slice
// with placeholders substituted, never mutating the plan's own slice.
type Part interface {
	// Kind returns the variant tag.
	Kind() PartKind
}

// PartKind tags a Part variant.
type PartKind string

const (
	PartText     PartKind = "text"
	PartFile     PartKind = "file_placeholder"
	PartFileRef  PartKind = "file_ref"
	PartCacheRef PartKind = "cache_ref"
)

// TextPart is inline text payload.
type TextPart struct {
	Text string
}

func (TextPart) Kind() PartKind { return PartText }

// FilePlaceholder marks a source that must be uploaded before generation.
// SourceIndex points into the resolved command's sources.
type FilePlaceholder struct {
	SourceIndex int

	// Required marks the upload as correctness-critical. If the active
	// provider cannot upload, a required placeholder is a hard
	// CapabilityError; an optional one is left for inline handling.
	Required bool
}

func (FilePlaceholder) Kind() PartKind { return PartFile }

// FileRefPart is a provider-issued reference to uploaded content. It replaces
// a FilePlaceholder after the upload stage.
type FileRefPart struct {
	// URI is the provider's handle for the uploaded file.
	URI string

	// MIMEType is the declared type of the uploaded content.
	MIMEType string
}

func (FileRefPart) Kind() PartKind { return PartFileRef }

// CacheReferencePart points generation at provider-side cached content.
type CacheReferencePart struct {
	CacheID string
}

func (CacheReferencePart) Kind() PartKind { return PartCacheRef }

// CacheReference identifies provider-side cached content. It is created by a
// caching-capable adapter and referenced, not owned, by later plans reusing
// the same content.
type CacheReference struct {
	CacheID   string
	CreatedAt time.Time

	// ExpiresAt bounds the reference's lifetime. Zero means the provider
	// did not report an expiry.
	ExpiresAt time.Time
}

// Expired reports whether the reference is past its known expiry at t.
func (c CacheReference) Expired(t time.Time) bool {
	return !c.ExpiresAt.IsZero() && !t.Before(c.ExpiresAt)
}

// RateConstraint is an immutable description of the rate limit to enforce
// before a plan's API call. One constraint is resolved per plan, from static
// provider/tier tables or a user override.
type RateConstraint struct {
	// RequestsPerMinute is the sustained request rate. Zero disables
	// request-rate limiting.
	RequestsPerMinute int

	// TokensPerMinute caps estimated token throughput. Zero disables
	// token limiting.
	TokensPerMinute int

	// MinInterval is the minimum spacing between consecutive requests on
	// the same limiter key.
	MinInterval time.Duration

	// BurstFactor scales the short-term burst allowance relative to
	// RequestsPerMinute. Values below 1 are treated as 1.
	BurstFactor float64
}

// Validate checks structural validity of the constraint.
func (rc RateConstraint) Validate() error {
	if rc.RequestsPerMinute < 0 {
		return &ValidationError{Field: "requests_per_minute", Message: fmt.Sprintf("negative rate %d", rc.RequestsPerMinute)}
	}
	if rc.TokensPerMinute < 0 {
		return &ValidationError{Field: "tokens_per_minute", Message: fmt.Sprintf("negative rate %d", rc.TokensPerMinute)}
	}
	if rc.MinInterval < 0 {
		return &ValidationError{Field: "min_interval_ms", Message: "negative interval"}
	}
	return nil
}

// CacheStrategy records the planner's cache-policy decision for a plan.
type CacheStrategy struct {
	// Key is the deterministic content digest used to look up or register
	// a shared cache.
	Key string

	// TTL is the requested cache lifetime.
	TTL time.Duration
}

// GenerationConfig is the provider-neutral slice of configuration a single
// generation call needs.
type GenerationConfig struct {
	APIKey       string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string

	// Extra is the open extension map threaded from configuration to the
	// adapter untouched.
	Extra map[string]string
}

// ExecutionPlan is the complete, immutable instruction set for executing one
// command against a provider. Built once by the planner; no later stage
// mutates it.
type ExecutionPlan struct {
	// Provider and Model select the adapter and model variant.
	Provider string
	Model    string

	// Tier is the account tier used for rate-constraint keying.
	Tier string

	// Parts is the ordered payload. The plan exclusively owns this slice.
	Parts []Part

	// PromptPartCount is how many leading parts are prompt text. The
	// remainder is source-derived content, which is what a cache strategy
	// covers: when generating against a cache, only the prompt parts are
	// sent alongside the reference.
	PromptPartCount int

	// Config carries the generation parameters.
	Config GenerationConfig

	// CacheStrategy is nil when caching was ruled out during planning.
	CacheStrategy *CacheStrategy

	// TokenEstimate is the planner's range estimate for the whole call.
	TokenEstimate TokenEstimate

	// RateConstraint is nil when no limiting applies.
	RateConstraint *RateConstraint

	// Fallback is an optional strictly simplified alternate plan: no
	// uploads, no cache. Executed at most once after a primary generation
	// failure.
	Fallback *ExecutionPlan
}

// Validate enforces plan invariants, notably that a fallback never requires
// capabilities the primary call might lack.
func (p ExecutionPlan) Validate() error {
	if p.Provider == "" {
		return &ValidationError{Field: "provider", Message: "plan has no provider"}
	}
	if p.Model == "" {
		return &ValidationError{Field: "model", Message: "plan has no model"}
	}
	if p.RateConstraint != nil {
		if err := p.RateConstraint.Validate(); err != nil {
			return err
		}
	}
	if err := p.TokenEstimate.Validate(); err != nil {
		return err
	}
	if p.Fallback != nil {
		if p.Fallback.CacheStrategy != nil {
			return &ValidationError{Field: "fallback_call", Message: "fallback plan must not use caching"}
		}
		for _, part := range p.Fallback.Parts {
			if part.Kind() == PartFile {
				return &ValidationError{Field: "fallback_call", Message: "fallback plan must not require uploads"}
			}
		}
		if p.Fallback.Fallback != nil {
			return &ValidationError{Field: "fallback_call", Message: "fallback plans do not nest"}
		}
	}
	return nil
}

// RequiresUpload reports whether any part of the plan still needs an upload.
func (p ExecutionPlan) RequiresUpload() bool {
	for _, part := range p.Parts {
		if part.Kind() == PartFile {
			return true
		}
	}
	return false
}
