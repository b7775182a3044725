package apihandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/seanbrar/pollux/pkg/cachestore"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
	"github.com/seanbrar/pollux/pkg/telemetry"
)

// Handler executes a planned command against a provider adapter through the
// fixed stage sequence: upload, cache, generate. Each stage checks whether
// it applies, checks the adapter's capability, and transforms state
// immutably; stages that don't apply are no-ops.
type Handler struct {
	client            providers.Generator
	registry          cachestore.Registry
	reporter          telemetry.Reporter
	logger            *slog.Logger
	uploadConcurrency int
}

// Option configures a Handler.
type Option func(*Handler)

// WithRegistry attaches a cache-reference registry consulted before cache
// creation.
func WithRegistry(r cachestore.Registry) Option {
	return func(h *Handler) { h.registry = r }
}

// WithReporter sets the telemetry sink.
func WithReporter(r telemetry.Reporter) Option {
	return func(h *Handler) { h.reporter = r }
}

// WithUploadConcurrency bounds the upload fan-out within one command.
func WithUploadConcurrency(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.uploadConcurrency = n
		}
	}
}

// New creates an API handler over a provider adapter.
func New(client providers.Generator, opts ...Option) *Handler {
	h := &Handler{
		client:            client,
		reporter:          telemetry.Noop(),
		logger:            slog.Default().With("component", "pipeline.api"),
		uploadConcurrency: 4,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements pipeline.Handler.
func (h *Handler) Name() string { return "api" }

// execState is the handler's working view of one command. Stage transforms
// return a new state; nothing is mutated in place.
type execState struct {
	plan     pipeline.ExecutionPlan
	parts    []pipeline.Part
	cacheRef *pipeline.CacheReference
}

func (s execState) withParts(parts []pipeline.Part) execState {
	next := s
	next.parts = parts
	return next
}

func (s execState) withCacheRef(ref *pipeline.CacheReference) execState {
	next := s
	next.cacheRef = ref
	return next
}

// Handle implements pipeline.Handler. Capability errors surface as errors;
// generation failure (post-fallback) is carried inside the finalized
// command so the result builder owns the error envelope.
func (h *Handler) Handle(ctx context.Context, cmd pipeline.Command) (pipeline.Command, error) {
	planned, ok := cmd.(pipeline.PlannedCommand)
	if !ok {
		return nil, &pipeline.InvariantViolation{
			StageName: h.Name(),
			Err:       fmt.Errorf("expected planned command, got stage %q", cmd.Stage()),
		}
	}

	state := execState{plan: planned.Plan, parts: planned.Plan.Parts}
	data := pipeline.TelemetryData{
		Durations:     make(map[string]time.Duration),
		RateLimitWait: planned.RateWait,
	}

	state, err := h.uploadStage(ctx, planned, state, &data)
	if err != nil {
		return nil, err
	}

	state = h.cacheStage(ctx, state, &data)

	raw, err := h.generateStage(ctx, planned, state, &data)
	finalized := pipeline.FinalizedCommand{
		Planned:   planned,
		Telemetry: data,
	}
	if err != nil {
		finalized.GenerationErr = err
		return finalized, nil
	}
	finalized.Raw = *raw

	h.observeTokens(planned, raw, &finalized.Telemetry)
	return finalized, nil
}

// observeTokens records actual-vs-estimated accounting. Observational only:
// the plan is never revisited.
func (h *Handler) observeTokens(planned pipeline.PlannedCommand, raw *pipeline.RawResponse, data *pipeline.TelemetryData) {
	actual := raw.Usage.TotalTokens
	if actual == 0 {
		return
	}
	estimate := planned.Plan.TokenEstimate
	data.ActualTokens = actual
	if estimate.Expected > 0 {
		data.AccuracyRatio = float64(actual) / float64(estimate.Expected)
	}
	data.InRange = actual >= estimate.Min && actual <= estimate.Max

	meta := telemetry.Metadata{"provider": planned.Plan.Provider, "model": planned.Plan.Model}
	h.reporter.RecordMetric("api.tokens.actual", float64(actual), meta)
	if data.AccuracyRatio > 0 {
		h.reporter.RecordMetric("api.tokens.accuracy", data.AccuracyRatio, meta)
	}
}
