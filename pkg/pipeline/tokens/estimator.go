package tokens

import (
	"strings"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// Estimator maps resolved sources and prompts to a range-based token
// estimate for one model.
//
// Implementations are pure: no I/O, no provider calls, no randomness.
// Estimating the same inputs twice yields identical output, and an estimator
// never fails: genuinely unknown input produces the widest plausible range
// at minimum confidence instead of an error.
type Estimator interface {
	Estimate(sources []pipeline.Source, prompts []string, model string) pipeline.TokenEstimate
}

// ForProvider returns the estimation adapter for a provider. Unknown
// providers get the conservative default profile.
func ForProvider(provider string) Estimator {
	switch strings.ToLower(provider) {
	case "gemini":
		return geminiEstimator
	case "openai":
		return openaiEstimator
	case "anthropic":
		return anthropicEstimator
	default:
		return defaultEstimator
	}
}

// Profile describes a provider's token-cost characteristics. All estimation
// adapters share one algorithm parameterized by a profile.
type Profile struct {
	// Provider is the profile's provider name, used in breakdowns.
	Provider string

	// CharsPerToken maps model-name prefixes to characters-per-token
	// ratios. The "default" entry is the family fallback.
	CharsPerToken map[string]float64

	// ImageTokens is the flat per-image cost.
	ImageTokens int

	// PDFTokensPerKiB is the expected token yield per KiB of PDF.
	PDFTokensPerKiB int

	// VideoTokensPerKiB is the expected token yield per KiB of video.
	VideoTokensPerKiB int

	// YouTubeTokens is the flat expected cost for a YouTube URL, whose
	// true duration is unknowable without I/O.
	YouTubeTokens int
}

var (
	geminiEstimator = &profileEstimator{profile: Profile{
		Provider: "gemini",
		CharsPerToken: map[string]float64{
			"gemini-2": 4.0,
			"gemini-1": 4.0,
			"default":  4.0,
		},
		ImageTokens:       258,
		PDFTokensPerKiB:   64,
		VideoTokensPerKiB: 8,
		YouTubeTokens:     30000,
	}}

	openaiEstimator = &profileEstimator{profile: Profile{
		Provider: "openai",
		CharsPerToken: map[string]float64{
			"gpt-4":   3.8,
			"gpt-3.5": 4.0,
			"default": 4.0,
		},
		ImageTokens:       765,
		PDFTokensPerKiB:   64,
		VideoTokensPerKiB: 8,
		YouTubeTokens:     30000,
	}}

	anthropicEstimator = &profileEstimator{profile: Profile{
		Provider: "anthropic",
		CharsPerToken: map[string]float64{
			"claude":  3.5,
			"default": 3.5,
		},
		ImageTokens:       1500,
		PDFTokensPerKiB:   96,
		VideoTokensPerKiB: 8,
		YouTubeTokens:     30000,
	}}

	defaultEstimator = &profileEstimator{profile: Profile{
		Provider: "default",
		CharsPerToken: map[string]float64{
			"default": 4.0,
		},
		ImageTokens:       1500,
		PDFTokensPerKiB:   96,
		VideoTokensPerKiB: 16,
		YouTubeTokens:     60000,
	}}
)

// NewProfileEstimator creates an estimator from a custom profile. Useful for
// tests and for providers not in the built-in set.
func NewProfileEstimator(p Profile) Estimator {
	return &profileEstimator{profile: p}
}
