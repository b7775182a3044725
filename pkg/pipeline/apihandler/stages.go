package apihandler

import (
	"context"
	"fmt"
	"sync"

	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
	"github.com/seanbrar/pollux/pkg/telemetry"
)

// uploadStage pushes every upload placeholder through the adapter's upload
// capability, concurrently, and substitutes references into a new parts
// tuple. Against an adapter without uploads, a required placeholder is a
// CapabilityError; optional placeholders are left for inline handling at
// generation time.
func (h *Handler) uploadStage(ctx context.Context, planned pipeline.PlannedCommand, state execState, data *pipeline.TelemetryData) (execState, error) {
	var indexes []int
	for i, part := range state.parts {
		if part.Kind() == pipeline.PartFile {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return state, nil
	}

	uploader, ok := h.client.(providers.Uploader)
	if !ok {
		for _, i := range indexes {
			ph := state.parts[i].(pipeline.FilePlaceholder)
			if ph.Required {
				src := planned.Resolved.Sources[ph.SourceIndex]
				return state, &providers.CapabilityError{
					Provider:   h.client.Provider(),
					Capability: "uploads",
					Reason:     fmt.Sprintf("source %q requires upload", src.Identifier),
				}
			}
		}
		h.logger.Debug("adapter lacks uploads, placeholders left inline",
			"command_id", planned.CommandID(),
			"placeholders", len(indexes),
		)
		return state, nil
	}

	timer := telemetry.StartTimer(h.reporter, "api.upload")
	parts, uploaded, err := h.fanOutUploads(ctx, planned, state.parts, indexes, uploader)
	data.Durations["upload"] = timer.Stop(telemetry.Metadata{"provider": h.client.Provider()})
	if err != nil {
		return state, err
	}
	data.UploadCount = uploaded
	return state.withParts(parts), nil
}

// fanOutUploads runs uploads concurrently with bounded fan-out. All uploads
// must complete; the first required failure cancels the rest. A failed
// optional upload leaves its placeholder for inline handling.
func (h *Handler) fanOutUploads(ctx context.Context, planned pipeline.PlannedCommand, parts []pipeline.Part, indexes []int, uploader providers.Uploader) ([]pipeline.Part, int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	next := make([]pipeline.Part, len(parts))
	copy(next, parts)

	sem := make(chan struct{}, h.uploadConcurrency)
	errCh := make(chan error, len(indexes))

	var wg sync.WaitGroup
	var mu sync.Mutex
	uploaded := 0

	for _, i := range indexes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}

			ph := next[i].(pipeline.FilePlaceholder)
			src := planned.Resolved.Sources[ph.SourceIndex]
			ref, err := uploader.UploadFile(ctx, src)
			if err != nil {
				if ph.Required {
					errCh <- err
					cancel()
					return
				}
				h.logger.Warn("optional upload failed, falling back to inline",
					"command_id", planned.CommandID(),
					"source", src.Identifier,
					"error", err,
				)
				return
			}

			mu.Lock()
			next[i] = ref
			uploaded++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, 0, err
	default:
	}
	return next, uploaded, nil
}

// cacheStage attaches a cache reference when the plan asks for one and the
// adapter can cache. Every failure path here degrades to "no cache":
// caching is an optimization, never correctness-critical.
func (h *Handler) cacheStage(ctx context.Context, state execState, data *pipeline.TelemetryData) execState {
	strategy := state.plan.CacheStrategy
	if strategy == nil {
		return state
	}
	cacher, ok := h.client.(providers.Cacher)
	if !ok {
		return state
	}

	timer := telemetry.StartTimer(h.reporter, "api.cache")
	defer func() {
		data.Durations["cache"] = timer.Stop(telemetry.Metadata{"provider": h.client.Provider()})
	}()

	if ref := h.reuseCache(ctx, cacher, strategy.Key); ref != nil {
		data.CacheHit = true
		return state.withCacheRef(ref)
	}

	contentParts := state.parts[min(state.plan.PromptPartCount, len(state.parts)):]
	if len(contentParts) == 0 {
		return state
	}

	ref, err := cacher.CreateCache(ctx, state.plan.Model, contentParts, strategy.TTL)
	if err != nil {
		h.logger.Warn("cache creation failed, continuing uncached", "error", err)
		return state
	}
	if h.registry != nil {
		if err := h.registry.Put(ctx, strategy.Key, ref); err != nil {
			h.logger.Warn("cache registry store failed", "error", err)
		}
	}
	return state.withCacheRef(&ref)
}

// reuseCache looks for a live registered reference and verifies the
// provider still has it.
func (h *Handler) reuseCache(ctx context.Context, cacher providers.Cacher, key string) *pipeline.CacheReference {
	if h.registry == nil {
		return nil
	}
	ref, err := h.registry.Get(ctx, key)
	if err != nil {
		h.logger.Warn("cache registry lookup failed", "error", err)
		return nil
	}
	if ref == nil {
		return nil
	}
	live, err := cacher.GetCache(ctx, ref.CacheID)
	if err != nil || live == nil {
		return nil
	}
	return live
}

// generateStage always runs. On primary failure with a fallback plan
// present, exactly one fallback attempt is made and tagged in telemetry.
func (h *Handler) generateStage(ctx context.Context, planned pipeline.PlannedCommand, state execState, data *pipeline.TelemetryData) (*pipeline.RawResponse, error) {
	raw, err := h.generateOnce(ctx, planned, state, data, "generate")
	if err == nil {
		return raw, nil
	}

	fallback := state.plan.Fallback
	if fallback == nil {
		return nil, err
	}

	h.logger.Warn("primary generation failed, attempting fallback",
		"command_id", planned.CommandID(),
		"error", err,
	)
	fallbackState := execState{plan: *fallback, parts: fallback.Parts}
	raw, fbErr := h.generateOnce(ctx, planned, fallbackState, data, "generate_fallback")
	if fbErr != nil {
		// Surface the fallback error; the primary failure is already in
		// the log.
		return nil, fbErr
	}
	data.FallbackUsed = true
	return raw, nil
}

func (h *Handler) generateOnce(ctx context.Context, planned pipeline.PlannedCommand, state execState, data *pipeline.TelemetryData, scope string) (*pipeline.RawResponse, error) {
	parts, err := h.resolveResidualPlaceholders(planned, state)
	if err != nil {
		return nil, err
	}

	if state.cacheRef != nil {
		parts = parts[:min(state.plan.PromptPartCount, len(parts))]
	}

	timer := telemetry.StartTimer(h.reporter, "api."+scope)
	raw, err := h.client.Generate(ctx, &providers.GenerateRequest{
		Model:    state.plan.Model,
		Parts:    parts,
		Config:   state.plan.Config,
		CacheRef: state.cacheRef,
	})
	data.Durations[scope] = timer.Stop(telemetry.Metadata{
		"provider": state.plan.Provider,
		"model":    state.plan.Model,
	})
	return raw, err
}

// resolveResidualPlaceholders inlines placeholders left by a degraded
// upload stage. Textual sources become text parts; binary optional content
// is dropped, which is the accepted cost of running upload-requiring plans
// against a generation-only adapter.
func (h *Handler) resolveResidualPlaceholders(planned pipeline.PlannedCommand, state execState) ([]pipeline.Part, error) {
	residual := false
	for _, part := range state.parts {
		if part.Kind() == pipeline.PartFile {
			residual = true
			break
		}
	}
	if !residual {
		return state.parts, nil
	}

	out := make([]pipeline.Part, 0, len(state.parts))
	for _, part := range state.parts {
		ph, ok := part.(pipeline.FilePlaceholder)
		if !ok {
			out = append(out, part)
			continue
		}
		src := planned.Resolved.Sources[ph.SourceIndex]
		content, err := src.Content()
		if err != nil {
			if ph.Required {
				return nil, &pipeline.StageFailure{
					StageName: "api",
					Reason:    fmt.Sprintf("source %q could not be inlined", src.Identifier),
					Cause:     err,
				}
			}
			continue
		}
		if isTextualMIME(src) {
			out = append(out, pipeline.TextPart{Text: string(content)})
		} else {
			h.logger.Warn("dropping non-textual source for capability-limited adapter",
				"command_id", planned.CommandID(),
				"source", src.Identifier,
			)
		}
	}
	return out, nil
}

func isTextualMIME(src pipeline.Source) bool {
	if src.Type == pipeline.SourceText {
		return true
	}
	mime := src.MIMEType
	return len(mime) >= 5 && mime[:5] == "text/"
}
