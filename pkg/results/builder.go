package results

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/telemetry"
)

// Builder converts finalized commands into result envelopes through the
// two-tier extraction algorithm: a deterministic prioritized transform
// chain, then the infallible minimal projection when no transform both
// matches and succeeds. The builder itself never fails on payload content;
// its status field is the single source of truth for outcome.
type Builder struct {
	transforms  []TransformSpec
	contract    Contract
	schema      *SchemaValidator
	reporter    telemetry.Reporter
	logger      *slog.Logger
	diagnostics bool
	maxRawBytes int
}

// Option configures a Builder.
type Option func(*Builder)

// WithTransform registers an additional transform in the chain.
func WithTransform(spec TransformSpec) Option {
	return func(b *Builder) { b.transforms = append(b.transforms, spec) }
}

// WithSchema attaches a record-only response schema validator.
func WithSchema(v *SchemaValidator) Option {
	return func(b *Builder) { b.schema = v }
}

// WithContract replaces the default envelope contract.
func WithContract(c Contract) Option {
	return func(b *Builder) { b.contract = c }
}

// WithDiagnostics enables the full extraction audit trail on envelopes.
func WithDiagnostics(enabled bool) Option {
	return func(b *Builder) { b.diagnostics = enabled }
}

// WithReporter sets the telemetry sink.
func WithReporter(r telemetry.Reporter) Option {
	return func(b *Builder) { b.reporter = r }
}

// WithMaxRawBytes overrides the payload size ceiling.
func WithMaxRawBytes(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxRawBytes = n
		}
	}
}

// New creates a result builder with the built-in transform chain.
func New(opts ...Option) *Builder {
	b := &Builder{
		transforms:  builtinTransforms(),
		reporter:    telemetry.Noop(),
		logger:      slog.Default().With("component", "pipeline.results"),
		maxRawBytes: defaultMaxRawBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	// Priority descending, ties broken by name so equal-priority
	// transforms resolve identically on every run.
	sort.SliceStable(b.transforms, func(i, j int) bool {
		if b.transforms[i].Priority != b.transforms[j].Priority {
			return b.transforms[i].Priority > b.transforms[j].Priority
		}
		return b.transforms[i].Name < b.transforms[j].Name
	})
	return b
}

// Name implements pipeline.Handler.
func (b *Builder) Name() string { return "results" }

// Handle implements pipeline.Handler. It returns an error only for a
// stage-ordering violation; every payload, including garbage, produces a
// valid envelope.
func (b *Builder) Handle(_ context.Context, cmd pipeline.Command) (pipeline.Command, error) {
	finalized, ok := cmd.(pipeline.FinalizedCommand)
	if !ok {
		return nil, &pipeline.InvariantViolation{
			StageName: b.Name(),
			Err:       fmt.Errorf("expected finalized command, got stage %q", cmd.Stage()),
		}
	}

	timer := telemetry.StartTimer(b.reporter, "results.build")
	envelope := b.build(finalized)
	elapsed := timer.Stop(telemetry.Metadata{"status": string(envelope.Status)})

	if b.diagnostics && envelope.Diagnostics != nil {
		envelope.Diagnostics["build_duration_ms"] = float64(elapsed.Microseconds()) / 1000
	}
	return pipeline.CompletedCommand{Finalized: finalized, Envelope: envelope}, nil
}

func (b *Builder) build(finalized pipeline.FinalizedCommand) pipeline.ResultEnvelope {
	expected := finalized.Planned.ExpectedAnswerCount()

	if finalized.GenerationErr != nil {
		return pipeline.ResultEnvelope{
			Status:           pipeline.StatusError,
			Answers:          normalizeCount(nil, expected),
			ExtractionMethod: "none",
			Confidence:       0,
			Metrics:          b.metrics(finalized, false),
			ValidationWarnings: []pipeline.Violation{{
				Message:  fmt.Sprintf("generation failed: %v", finalized.GenerationErr),
				Severity: "error",
			}},
		}
	}

	payload, truncated := truncateOversized(finalized.Raw.Payload, b.maxRawBytes)
	if truncated {
		b.logger.Warn("oversized raw response truncated before extraction",
			"command_id", finalized.CommandID(),
		)
	}

	extraction, method, tier1, attempts, transformErrs := b.runChain(payload)
	if !tier1 {
		extraction, method = minimalProjection(payload, expected)
	}

	originalCount := len(extraction.Answers)
	answers := normalizeCount(extraction.Answers, expected)

	status := pipeline.StatusOK
	if tier1 && originalCount != expected {
		status = pipeline.StatusPartial
	}

	warnings := b.contract.Check(answers, extraction.Structured, originalCount, expected)
	if b.schema != nil {
		warnings = append(warnings, b.schema.Check(payload)...)
	}

	envelope := pipeline.ResultEnvelope{
		Status:             status,
		Answers:            answers,
		ExtractionMethod:   method,
		Confidence:         clamp01(extraction.Confidence),
		StructuredData:     extraction.Structured,
		Metrics:            b.metrics(finalized, truncated),
		Usage:              usageMap(finalized.Raw.Usage),
		ValidationWarnings: warnings,
	}

	if b.diagnostics {
		envelope.Diagnostics = map[string]any{
			"attempted_transforms": attempts,
			"winning_method":       method,
			"tier1":                tier1,
			"expected_count":       expected,
			"original_count":       originalCount,
			"truncated_input":      truncated,
		}
		if len(transformErrs) > 0 {
			envelope.Diagnostics["transform_errors"] = transformErrs
		}
	}
	return envelope
}

// runChain walks the sorted transform chain. A matching transform whose
// extractor fails is recorded and skipped; the first matching transform
// that succeeds wins outright.
func (b *Builder) runChain(payload any) (Extraction, string, bool, []string, map[string]string) {
	var attempts []string
	transformErrs := make(map[string]string)
	for _, spec := range b.transforms {
		if !spec.Matches(payload) {
			continue
		}
		attempts = append(attempts, spec.Name)
		extraction, err := spec.Extract(payload)
		if err != nil {
			transformErrs[spec.Name] = err.Error()
			b.logger.Debug("transform failed, continuing chain",
				"transform", spec.Name,
				"error", err,
			)
			continue
		}
		return extraction, spec.Name, true, attempts, transformErrs
	}
	return Extraction{}, "", false, attempts, transformErrs
}

func (b *Builder) metrics(finalized pipeline.FinalizedCommand, truncated bool) map[string]any {
	data := finalized.Telemetry
	metrics := map[string]any{
		"cache_hit":     data.CacheHit,
		"fallback_used": data.FallbackUsed,
		"upload_count":  data.UploadCount,
	}
	if len(data.Durations) > 0 {
		durations := make(map[string]float64, len(data.Durations))
		for scope, d := range data.Durations {
			durations[scope] = float64(d.Microseconds()) / 1000
		}
		metrics["durations_ms"] = durations
	}
	if data.RateLimitWait > 0 {
		metrics["rate_limit_wait_ms"] = float64(data.RateLimitWait / time.Millisecond)
	}
	if data.ActualTokens > 0 {
		metrics["actual_tokens"] = data.ActualTokens
		metrics["accuracy_ratio"] = data.AccuracyRatio
		metrics["in_range"] = data.InRange
	}
	if truncated {
		metrics["truncated_input"] = true
	}
	return metrics
}

func usageMap(u pipeline.Usage) map[string]int {
	if u.TotalTokens == 0 && u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return nil
	}
	return map[string]int{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.CompletionTokens,
		"total_tokens":      u.TotalTokens,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
