package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/pipeline/tokens"
)

// Planner turns a resolved command into an immutable execution plan. It
// performs no SDK calls: token estimation, cache policy, rate-constraint
// lookup, and payload assembly are all pure transforms over the resolved
// inputs and the frozen configuration.
type Planner struct {
	cfg       *config.Frozen
	estimator tokens.Estimator
	logger    *slog.Logger
}

// New creates a planner bound to one frozen configuration snapshot.
func New(cfg *config.Frozen) *Planner {
	return &Planner{
		cfg:       cfg,
		estimator: tokens.ForProvider(cfg.Provider()),
		logger:    slog.Default().With("component", "pipeline.planner"),
	}
}

// Name implements pipeline.Handler.
func (p *Planner) Name() string { return "plan" }

// Handle implements pipeline.Handler. It consumes a ResolvedCommand and
// produces a PlannedCommand. Unresolvable inputs are reported as stage
// failures naming the offending source, never as low-level errors escaping
// the planner boundary.
func (p *Planner) Handle(ctx context.Context, cmd pipeline.Command) (pipeline.Command, error) {
	resolved, ok := cmd.(pipeline.ResolvedCommand)
	if !ok {
		return nil, &pipeline.InvariantViolation{
			StageName: p.Name(),
			Err:       fmt.Errorf("expected resolved command, got stage %q", cmd.Stage()),
		}
	}

	for _, src := range resolved.Sources {
		if err := src.Validate(); err != nil {
			return nil, &pipeline.StageFailure{
				StageName: p.Name(),
				Reason:    fmt.Sprintf("source %q is not usable", src.Identifier),
				Cause:     err,
			}
		}
	}

	plan, err := p.Plan(resolved)
	if err != nil {
		return nil, err
	}
	return pipeline.PlannedCommand{Resolved: resolved, Plan: plan}, nil
}

// Plan builds the execution plan for a resolved command. A command with no
// sources and no prompts yields a minimal plan with a zero estimate, not an
// error.
func (p *Planner) Plan(cmd pipeline.ResolvedCommand) (pipeline.ExecutionPlan, error) {
	estimate := p.estimator.Estimate(cmd.Sources, cmd.Initial.Prompts, p.cfg.Model())

	parts, err := p.assembleParts(cmd)
	if err != nil {
		return pipeline.ExecutionPlan{}, err
	}

	plan := pipeline.ExecutionPlan{
		Provider:        p.cfg.Provider(),
		Model:           p.cfg.Model(),
		Tier:            p.cfg.Tier(),
		Parts:           parts,
		PromptPartCount: len(cmd.Initial.Prompts),
		Config:          p.generationConfig(),
		CacheStrategy:   resolveCachePolicy(p.cfg, cmd, estimate),
		TokenEstimate:   estimate,
		RateConstraint:  ResolveRateConstraint(p.cfg, p.cfg.Provider(), p.cfg.Tier()),
	}
	plan.Fallback = p.buildFallback(plan, cmd)

	if err := plan.Validate(); err != nil {
		return pipeline.ExecutionPlan{}, &pipeline.InvariantViolation{StageName: p.Name(), Err: err}
	}

	p.logger.Debug("plan assembled",
		"command_id", cmd.CommandID(),
		"parts", len(plan.Parts),
		"expected_tokens", estimate.Expected,
		"max_tokens", estimate.Max,
		"cached", plan.CacheStrategy != nil,
		"fallback", plan.Fallback != nil,
	)
	return plan, nil
}

// assembleParts builds the ordered payload: prompts first, then sources.
// Inline-vs-upload is decided per source by size and MIME type; YouTube
// URLs become file references directly since providers consume the URL.
func (p *Planner) assembleParts(cmd pipeline.ResolvedCommand) ([]pipeline.Part, error) {
	parts := make([]pipeline.Part, 0, len(cmd.Initial.Prompts)+len(cmd.Sources))

	for _, prompt := range cmd.Initial.Prompts {
		parts = append(parts, pipeline.TextPart{Text: prompt})
	}

	for i, src := range cmd.Sources {
		part, err := p.sourcePart(i, src)
		if err != nil {
			return nil, &pipeline.StageFailure{
				StageName: p.Name(),
				Reason:    fmt.Sprintf("source %q has no readable content", src.Identifier),
				Cause:     err,
			}
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func (p *Planner) sourcePart(index int, src pipeline.Source) (pipeline.Part, error) {
	if src.Type == pipeline.SourceYouTube {
		return pipeline.FileRefPart{URI: src.Identifier, MIMEType: "video/youtube"}, nil
	}

	if p.inlineEligible(src) {
		content, err := src.Content()
		if err != nil {
			return nil, err
		}
		return pipeline.TextPart{Text: string(content)}, nil
	}

	// Binary content cannot be inlined as text, so its upload is
	// correctness-critical. Oversized text could still be inlined by a
	// degraded adapter, so its upload stays optional.
	required := !textual(src)
	return pipeline.FilePlaceholder{SourceIndex: index, Required: required}, nil
}

func (p *Planner) inlineEligible(src pipeline.Source) bool {
	return textual(src) && src.SizeBytes <= p.cfg.InlineMaxBytes()
}

func textual(src pipeline.Source) bool {
	if src.Type == pipeline.SourceText {
		return true
	}
	if src.Type == pipeline.SourceFile {
		mime := src.MIMEType
		if strings.HasPrefix(mime, "text/") {
			return true
		}
		switch mime {
		case "application/json", "application/xml", "application/yaml":
			return true
		}
	}
	return false
}

func (p *Planner) generationConfig() pipeline.GenerationConfig {
	return pipeline.GenerationConfig{
		APIKey:       p.cfg.APIKey(),
		Temperature:  p.cfg.Temperature(),
		MaxTokens:    p.cfg.MaxOutputTokens(),
		SystemPrompt: p.cfg.SystemPrompt(),
		Extra:        p.cfg.ExtraMap(),
	}
}

// buildFallback derives the strictly simplified alternate plan: no cache
// strategy, no upload placeholders. Placeholders whose sources are textual
// are inlined; others are dropped. When the primary plan is already that
// simple, there is nothing to fall back to and nil is returned.
func (p *Planner) buildFallback(primary pipeline.ExecutionPlan, cmd pipeline.ResolvedCommand) *pipeline.ExecutionPlan {
	if primary.CacheStrategy == nil && !primary.RequiresUpload() {
		return nil
	}

	parts := make([]pipeline.Part, 0, len(primary.Parts))
	for _, part := range primary.Parts {
		ph, ok := part.(pipeline.FilePlaceholder)
		if !ok {
			parts = append(parts, part)
			continue
		}
		src := cmd.Sources[ph.SourceIndex]
		if !textual(src) {
			continue
		}
		content, err := src.Content()
		if err != nil {
			continue
		}
		parts = append(parts, pipeline.TextPart{Text: string(content)})
	}

	return &pipeline.ExecutionPlan{
		Provider:        primary.Provider,
		Model:           primary.Model,
		Tier:            primary.Tier,
		Parts:           parts,
		PromptPartCount: primary.PromptPartCount,
		Config:          primary.Config,
		TokenEstimate:   primary.TokenEstimate,
		RateConstraint:  primary.RateConstraint,
	}
}
