package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Stage identifies how far through the pipeline a command has progressed.
type Stage string

const (
	StageInitial   Stage = "initial"
	StageResolved  Stage = "resolved"
	StagePlanned   Stage = "planned"
	StageFinalized Stage = "finalized"
	StageCompleted Stage = "completed"
)

// Command is an immutable description of a request at a given pipeline
// stage. Handlers consume one variant and produce the next; no variant is
// ever mutated after construction.
type Command interface {
	// CommandID returns the stable identity assigned at creation.
	CommandID() string

	// Stage returns the variant's pipeline stage.
	Stage() Stage
}

// InitialCommand is the caller's request before source resolution.
type InitialCommand struct {
	// ID is assigned once and carried through every later variant.
	ID string

	// Prompts are the caller's questions, one envelope answer expected
	// per prompt.
	Prompts []string

	// History is prior conversation content. Shared-cache creation is
	// first-turn-only, so a non-empty history disables it.
	History []string
}

// NewInitialCommand creates a command with a fresh UUID.
func NewInitialCommand(prompts []string) InitialCommand {
	return InitialCommand{
		ID:      uuid.NewString(),
		Prompts: prompts,
	}
}

func (c InitialCommand) CommandID() string { return c.ID }
func (c InitialCommand) Stage() Stage      { return StageInitial }

// ResolvedCommand is an InitialCommand whose sources have been resolved by
// the external source handler.
type ResolvedCommand struct {
	Initial InitialCommand

	// Sources are the resolved input descriptors, read-only from here on.
	Sources []Source
}

func (c ResolvedCommand) CommandID() string { return c.Initial.ID }
func (c ResolvedCommand) Stage() Stage      { return StageResolved }

// PlannedCommand carries the planner's immutable execution plan.
type PlannedCommand struct {
	Resolved ResolvedCommand
	Plan     ExecutionPlan

	// RateWait is how long the rate-limit handler suspended this command
	// before releasing it to the API handler. Informational; set by the
	// rate-limit stage on the copy it returns.
	RateWait time.Duration
}

func (c PlannedCommand) CommandID() string { return c.Resolved.Initial.ID }
func (c PlannedCommand) Stage() Stage      { return StagePlanned }

// ExpectedAnswerCount is the number of answers the result builder must
// produce: one per prompt.
func (c PlannedCommand) ExpectedAnswerCount() int {
	return len(c.Resolved.Initial.Prompts)
}

// Usage is the provider-reported token accounting for one generation call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// RawResponse is the provider-neutral result of a generation call. Payload
// is the decoded response body: a map, a slice, or a plain string, depending
// on what the provider returned. The result builder's transform chain
// matches on its shape.
type RawResponse struct {
	Provider string
	Model    string
	Payload  any
	Usage    Usage
}

// TelemetryData is the per-command execution record attached to a
// FinalizedCommand. Token validation here is observational only: it never
// feeds back into the plan.
type TelemetryData struct {
	// Durations maps stage scopes to elapsed time.
	Durations map[string]time.Duration

	// UploadCount is how many files the upload stage pushed.
	UploadCount int

	// CacheHit reports whether an existing cache reference was reused.
	CacheHit bool

	// FallbackUsed marks the response as produced by the fallback plan.
	FallbackUsed bool

	// ActualTokens is the provider-reported total, zero when unreported.
	ActualTokens int

	// AccuracyRatio is actual/expected when both are known.
	AccuracyRatio float64

	// InRange reports whether the actual total landed inside the
	// estimate's [Min, Max].
	InRange bool

	// RateLimitWait is how long the command waited for its limiter key.
	RateLimitWait time.Duration
}

// FinalizedCommand pairs a planned command with the raw provider response
// and execution telemetry. It is produced once by the API handler and
// consumed exactly once by the result builder.
type FinalizedCommand struct {
	Planned   PlannedCommand
	Raw       RawResponse
	Telemetry TelemetryData

	// GenerationErr is set when generation failed even after the fallback
	// attempt. The result builder turns it into an error envelope rather
	// than propagating it.
	GenerationErr error
}

func (c FinalizedCommand) CommandID() string { return c.Planned.CommandID() }
func (c FinalizedCommand) Stage() Stage      { return StageFinalized }

// CompletedCommand is the terminal variant carrying the result envelope.
type CompletedCommand struct {
	Finalized FinalizedCommand
	Envelope  ResultEnvelope
}

func (c CompletedCommand) CommandID() string { return c.Finalized.CommandID() }
func (c CompletedCommand) Stage() Stage      { return StageCompleted }
