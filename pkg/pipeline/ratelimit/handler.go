package ratelimit

import (
	"context"
	"fmt"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// Handler is the pipeline stage that enforces a plan's rate constraint
// before any network call. Plans without a constraint pass straight
// through.
type Handler struct {
	registry *Registry
}

// NewHandler creates the rate-limit stage over a shared registry. The
// registry must be shared by every executor in the process so that
// concurrent commands on the same key pace each other.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Name implements pipeline.Handler.
func (h *Handler) Name() string { return "ratelimit" }

// Handle implements pipeline.Handler. Token gating uses the estimate's Max
// bound: admitting a request the provider would reject costs more than
// waiting slightly too long.
func (h *Handler) Handle(ctx context.Context, cmd pipeline.Command) (pipeline.Command, error) {
	planned, ok := cmd.(pipeline.PlannedCommand)
	if !ok {
		return nil, &pipeline.InvariantViolation{
			StageName: h.Name(),
			Err:       fmt.Errorf("expected planned command, got stage %q", cmd.Stage()),
		}
	}

	rc := planned.Plan.RateConstraint
	if rc == nil {
		return planned, nil
	}

	key := Key{
		Provider: planned.Plan.Provider,
		Model:    planned.Plan.Model,
		Tier:     planned.Plan.Tier,
	}
	waited, err := h.registry.Acquire(ctx, key, *rc, planned.Plan.TokenEstimate.Max)
	if err != nil {
		return nil, err
	}

	out := planned
	out.RateWait = waited
	return out, nil
}
