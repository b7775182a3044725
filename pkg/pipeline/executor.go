package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/seanbrar/pollux/pkg/telemetry"
)

// Executor threads a command through the ordered handler list. It is a thin
// sequencer: all stage semantics live in the handlers.
//
// One executor may serve many concurrent commands; it holds no per-command
// state.
type Executor struct {
	handlers []Handler
	reporter telemetry.Reporter
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithReporter sets the telemetry sink. Defaults to the no-op reporter.
func WithReporter(r telemetry.Reporter) ExecutorOption {
	return func(e *Executor) { e.reporter = r }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an executor over the given ordered handlers.
func NewExecutor(handlers []Handler, opts ...ExecutorOption) *Executor {
	e := &Executor{
		handlers: handlers,
		reporter: telemetry.Noop(),
		logger:   slog.Default().With("component", "pipeline.executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one command through every handler in order and returns the
// terminal result envelope.
//
// Domain failures and capability errors surface as errors; the result
// builder itself never fails, so a non-nil error always means the pipeline
// stopped before completion.
func (e *Executor) Execute(ctx context.Context, cmd Command) (ResultEnvelope, error) {
	for _, h := range e.handlers {
		if err := ctx.Err(); err != nil {
			return ResultEnvelope{}, err
		}

		timer := telemetry.StartTimer(e.reporter, "pipeline."+h.Name())
		next, err := h.Handle(ctx, cmd)
		elapsed := timer.Stop(telemetry.Metadata{"command_id": cmd.CommandID()})

		if err != nil {
			e.logger.Warn("pipeline stage failed",
				"stage", h.Name(),
				"command_id", cmd.CommandID(),
				"duration", elapsed,
				"error", err,
			)
			return ResultEnvelope{}, err
		}
		e.logger.Debug("pipeline stage complete",
			"stage", h.Name(),
			"command_id", cmd.CommandID(),
			"from", cmd.Stage(),
			"to", next.Stage(),
			"duration", elapsed,
		)
		cmd = next
	}

	completed, ok := cmd.(CompletedCommand)
	if !ok {
		return ResultEnvelope{}, &InvariantViolation{
			StageName: lastHandlerName(e.handlers),
			Err:       fmt.Errorf("pipeline ended at stage %q, expected %q", cmd.Stage(), StageCompleted),
		}
	}
	if err := completed.Envelope.Validate(); err != nil {
		return ResultEnvelope{}, &InvariantViolation{
			StageName: lastHandlerName(e.handlers),
			Err:       err,
		}
	}
	return completed.Envelope, nil
}

// ExecuteAll runs independent commands concurrently, at most concurrency at
// a time. Results are returned in input order; each slot carrying either an
// envelope or that command's error. A zero or negative concurrency means
// unbounded.
func (e *Executor) ExecuteAll(ctx context.Context, cmds []Command, concurrency int) ([]ResultEnvelope, []error) {
	envelopes := make([]ResultEnvelope, len(cmds))
	errs := make([]error, len(cmds))

	var sem chan struct{}
	if concurrency > 0 {
		sem = make(chan struct{}, concurrency)
	}

	var wg sync.WaitGroup
	for i, cmd := range cmds {
		wg.Add(1)
		go func(i int, cmd Command) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					errs[i] = ctx.Err()
					return
				}
			}
			envelopes[i], errs[i] = e.Execute(ctx, cmd)
		}(i, cmd)
	}
	wg.Wait()

	return envelopes, errs
}

func lastHandlerName(handlers []Handler) string {
	if len(handlers) == 0 {
		return "none"
	}
	return handlers[len(handlers)-1].Name()
}
