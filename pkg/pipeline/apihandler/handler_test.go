package apihandler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seanbrar/pollux/pkg/cachestore"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

// fakeGenerator is generation-only: no upload or cache capability.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []*providers.GenerateRequest
	respond  func(req *providers.GenerateRequest) (*pipeline.RawResponse, error)
}

func (f *fakeGenerator) Provider() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, req *providers.GenerateRequest) (*pipeline.RawResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	return &pipeline.RawResponse{
		Provider: "fake",
		Model:    req.Model,
		Payload:  "answer",
		Usage:    pipeline.Usage{TotalTokens: 42},
	}, nil
}

func (f *fakeGenerator) calls() []*providers.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*providers.GenerateRequest(nil), f.requests...)
}

// fakeFullAdapter adds upload and cache capabilities on top of generation.
type fakeFullAdapter struct {
	fakeGenerator
	uploadErr   error
	uploadCalls atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	cacheMu     sync.Mutex
	caches      map[string]pipeline.CacheReference
	createErr   error
	createCalls int
}

func (f *fakeFullAdapter) UploadFile(ctx context.Context, src pipeline.Source) (pipeline.FileRefPart, error) {
	f.uploadCalls.Add(1)
	cur := f.inFlight.Add(1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	f.inFlight.Add(-1)

	if f.uploadErr != nil {
		return pipeline.FileRefPart{}, f.uploadErr
	}
	return pipeline.FileRefPart{URI: "uploaded://" + src.Identifier, MIMEType: src.MIMEType}, nil
}

func (f *fakeFullAdapter) CreateCache(ctx context.Context, model string, parts []pipeline.Part, ttl time.Duration) (pipeline.CacheReference, error) {
	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return pipeline.CacheReference{}, f.createErr
	}
	ref := pipeline.CacheReference{CacheID: "cache-1", ExpiresAt: time.Now().Add(ttl)}
	if f.caches == nil {
		f.caches = make(map[string]pipeline.CacheReference)
	}
	f.caches[ref.CacheID] = ref
	return ref, nil
}

func (f *fakeFullAdapter) GetCache(ctx context.Context, id string) (*pipeline.CacheReference, error) {
	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()
	ref, ok := f.caches[id]
	if !ok {
		return nil, nil
	}
	return &ref, nil
}

func textualSource(id, content string) pipeline.Source {
	return pipeline.Source{
		Type:       pipeline.SourceText,
		Identifier: id,
		MIMEType:   "text/plain",
		SizeBytes:  int64(len(content)),
		Loader: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

func imageSource(id string) pipeline.Source {
	return pipeline.Source{
		Type:       pipeline.SourceImage,
		Identifier: id,
		MIMEType:   "image/png",
		SizeBytes:  4,
		Loader: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte{1, 2, 3, 4})), nil
		},
	}
}

func plannedCmd(plan pipeline.ExecutionPlan, sources ...pipeline.Source) pipeline.PlannedCommand {
	return pipeline.PlannedCommand{
		Resolved: pipeline.ResolvedCommand{
			Initial: pipeline.NewInitialCommand([]string{"q"}),
			Sources: sources,
		},
		Plan: plan,
	}
}

func basePlan(parts ...pipeline.Part) pipeline.ExecutionPlan {
	return pipeline.ExecutionPlan{
		Provider:        "fake",
		Model:           "test-model",
		Tier:            "free",
		Parts:           append([]pipeline.Part{pipeline.TextPart{Text: "q"}}, parts...),
		PromptPartCount: 1,
		TokenEstimate:   pipeline.NewTokenEstimate(10, 40, 100, 0.9),
	}
}

func finalize(t *testing.T, h *Handler, cmd pipeline.PlannedCommand) pipeline.FinalizedCommand {
	t.Helper()
	out, err := h.Handle(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	fin, ok := out.(pipeline.FinalizedCommand)
	if !ok {
		t.Fatalf("output is %T, want FinalizedCommand", out)
	}
	return fin
}

func TestHandleGenerateOnly(t *testing.T) {
	gen := &fakeGenerator{}
	h := New(gen)

	cmd := plannedCmd(basePlan())
	cmd.RateWait = 123 * time.Millisecond
	fin := finalize(t, h, cmd)

	if fin.GenerationErr != nil {
		t.Fatalf("GenerationErr = %v", fin.GenerationErr)
	}
	if fin.Raw.Payload != "answer" {
		t.Errorf("payload = %v", fin.Raw.Payload)
	}
	if fin.Telemetry.RateLimitWait != 123*time.Millisecond {
		t.Error("rate wait not carried into telemetry")
	}
	if fin.Telemetry.ActualTokens != 42 {
		t.Errorf("ActualTokens = %d, want 42", fin.Telemetry.ActualTokens)
	}
	if !fin.Telemetry.InRange {
		t.Error("42 tokens should land inside [10, 100]")
	}
	if len(gen.calls()) != 1 {
		t.Fatalf("generate calls = %d, want 1", len(gen.calls()))
	}
}

func TestHandleWrongStage(t *testing.T) {
	h := New(&fakeGenerator{})
	_, err := h.Handle(context.Background(), pipeline.NewInitialCommand([]string{"q"}))
	var iv *pipeline.InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatalf("error = %v, want InvariantViolation", err)
	}
}

func TestUploadCapabilityMissing(t *testing.T) {
	t.Run("required placeholder fails before generation", func(t *testing.T) {
		gen := &fakeGenerator{}
		h := New(gen)

		src := imageSource("photo.png")
		plan := basePlan(pipeline.FilePlaceholder{SourceIndex: 0, Required: true})
		_, err := h.Handle(context.Background(), plannedCmd(plan, src))

		var ce *providers.CapabilityError
		if !errors.As(err, &ce) {
			t.Fatalf("error = %v, want CapabilityError", err)
		}
		if ce.Capability != "uploads" {
			t.Errorf("capability = %q, want uploads", ce.Capability)
		}
		if len(gen.calls()) != 0 {
			t.Error("generation ran despite the capability failure")
		}
	})

	t.Run("optional textual placeholder inlined", func(t *testing.T) {
		gen := &fakeGenerator{}
		h := New(gen)

		src := textualSource("notes.txt", "inline content")
		plan := basePlan(pipeline.FilePlaceholder{SourceIndex: 0, Required: false})
		fin := finalize(t, h, plannedCmd(plan, src))

		if fin.GenerationErr != nil {
			t.Fatalf("GenerationErr = %v", fin.GenerationErr)
		}
		req := gen.calls()[0]
		if len(req.Parts) != 2 {
			t.Fatalf("parts sent = %d, want 2", len(req.Parts))
		}
		tp, ok := req.Parts[1].(pipeline.TextPart)
		if !ok || tp.Text != "inline content" {
			t.Errorf("placeholder not inlined: %#v", req.Parts[1])
		}
	})
}

func TestUploadFanOut(t *testing.T) {
	adapter := &fakeFullAdapter{}
	h := New(adapter, WithUploadConcurrency(2))

	sources := []pipeline.Source{
		imageSource("a.png"),
		imageSource("b.png"),
		imageSource("c.png"),
		imageSource("d.png"),
	}
	plan := basePlan(
		pipeline.FilePlaceholder{SourceIndex: 0, Required: true},
		pipeline.FilePlaceholder{SourceIndex: 1, Required: true},
		pipeline.FilePlaceholder{SourceIndex: 2, Required: true},
		pipeline.FilePlaceholder{SourceIndex: 3, Required: true},
	)
	fin := finalize(t, h, plannedCmd(plan, sources...))

	if fin.Telemetry.UploadCount != 4 {
		t.Errorf("UploadCount = %d, want 4", fin.Telemetry.UploadCount)
	}
	if got := adapter.maxInFlight.Load(); got > 2 {
		t.Errorf("max concurrent uploads = %d, want <= 2", got)
	}

	req := adapter.calls()[0]
	if len(req.Parts) != 5 {
		t.Fatalf("parts sent = %d, want 5", len(req.Parts))
	}
	for i := 1; i < 5; i++ {
		ref, ok := req.Parts[i].(pipeline.FileRefPart)
		if !ok {
			t.Fatalf("part %d is %T, want FileRefPart", i, req.Parts[i])
		}
		if ref.URI == "" {
			t.Errorf("part %d has empty URI", i)
		}
	}
}

func TestUploadRequiredFailure(t *testing.T) {
	adapter := &fakeFullAdapter{uploadErr: errors.New("quota exhausted")}
	h := New(adapter)

	plan := basePlan(pipeline.FilePlaceholder{SourceIndex: 0, Required: true})
	_, err := h.Handle(context.Background(), plannedCmd(plan, imageSource("a.png")))
	if err == nil {
		t.Fatal("required upload failure did not surface")
	}
	if len(adapter.calls()) != 0 {
		t.Error("generation ran after required upload failure")
	}
}

func TestCacheStage(t *testing.T) {
	strategy := &pipeline.CacheStrategy{Key: "digest-1", TTL: time.Hour}

	t.Run("miss creates and registers", func(t *testing.T) {
		adapter := &fakeFullAdapter{}
		registry := cachestore.NewMemory()
		h := New(adapter, WithRegistry(registry))

		plan := basePlan(pipeline.TextPart{Text: "large corpus"})
		plan.CacheStrategy = strategy
		fin := finalize(t, h, plannedCmd(plan))

		if fin.Telemetry.CacheHit {
			t.Error("first run should not be a hit")
		}
		if adapter.createCalls != 1 {
			t.Errorf("CreateCache calls = %d, want 1", adapter.createCalls)
		}
		stored, err := registry.Get(context.Background(), "digest-1")
		if err != nil || stored == nil {
			t.Fatalf("registry entry missing: ref=%v err=%v", stored, err)
		}

		// With a cache attached only prompt parts go on the wire.
		req := adapter.calls()[0]
		if len(req.Parts) != 1 {
			t.Errorf("parts sent = %d, want prompt only", len(req.Parts))
		}
		if req.CacheRef == nil || req.CacheRef.CacheID != "cache-1" {
			t.Errorf("CacheRef = %v", req.CacheRef)
		}
	})

	t.Run("second run reuses", func(t *testing.T) {
		adapter := &fakeFullAdapter{}
		registry := cachestore.NewMemory()
		h := New(adapter, WithRegistry(registry))

		plan := basePlan(pipeline.TextPart{Text: "large corpus"})
		plan.CacheStrategy = strategy
		finalize(t, h, plannedCmd(plan))
		fin := finalize(t, h, plannedCmd(plan))

		if !fin.Telemetry.CacheHit {
			t.Error("second run should reuse the registered cache")
		}
		if adapter.createCalls != 1 {
			t.Errorf("CreateCache calls = %d, want 1", adapter.createCalls)
		}
	})

	t.Run("creation failure degrades to uncached", func(t *testing.T) {
		adapter := &fakeFullAdapter{createErr: errors.New("cache service down")}
		h := New(adapter, WithRegistry(cachestore.NewMemory()))

		plan := basePlan(pipeline.TextPart{Text: "large corpus"})
		plan.CacheStrategy = strategy
		fin := finalize(t, h, plannedCmd(plan))

		if fin.GenerationErr != nil {
			t.Fatalf("cache failure leaked into generation: %v", fin.GenerationErr)
		}
		req := adapter.calls()[0]
		if req.CacheRef != nil {
			t.Error("degraded run still carried a cache reference")
		}
		if len(req.Parts) != 2 {
			t.Errorf("parts sent = %d, want full payload", len(req.Parts))
		}
	})

	t.Run("non-caching adapter skips silently", func(t *testing.T) {
		gen := &fakeGenerator{}
		h := New(gen, WithRegistry(cachestore.NewMemory()))

		plan := basePlan()
		plan.CacheStrategy = strategy
		fin := finalize(t, h, plannedCmd(plan))
		if fin.GenerationErr != nil {
			t.Fatalf("GenerationErr = %v", fin.GenerationErr)
		}
		if gen.calls()[0].CacheRef != nil {
			t.Error("generation-only adapter produced a cache reference")
		}
	})
}

func TestGenerateFallback(t *testing.T) {
	fallbackPlan := func() *pipeline.ExecutionPlan {
		return &pipeline.ExecutionPlan{
			Provider:        "fake",
			Model:           "test-model",
			Tier:            "free",
			Parts:           []pipeline.Part{pipeline.TextPart{Text: "q"}},
			PromptPartCount: 1,
			TokenEstimate:   pipeline.NewTokenEstimate(10, 40, 100, 0.9),
		}
	}

	t.Run("used once on primary failure", func(t *testing.T) {
		calls := 0
		gen := &fakeGenerator{}
		gen.respond = func(req *providers.GenerateRequest) (*pipeline.RawResponse, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("primary rejected")
			}
			return &pipeline.RawResponse{Payload: "recovered", Usage: pipeline.Usage{TotalTokens: 5}}, nil
		}
		plan := basePlan()
		plan.Fallback = fallbackPlan()
		h := New(gen)

		fin := finalize(t, h, plannedCmd(plan))
		if fin.GenerationErr != nil {
			t.Fatalf("GenerationErr = %v", fin.GenerationErr)
		}
		if !fin.Telemetry.FallbackUsed {
			t.Error("FallbackUsed not set")
		}
		if calls != 2 {
			t.Errorf("generate calls = %d, want 2", calls)
		}
	})

	t.Run("post-fallback failure carried not returned", func(t *testing.T) {
		gen := &fakeGenerator{}
		gen.respond = func(req *providers.GenerateRequest) (*pipeline.RawResponse, error) {
			return nil, errors.New("hard down")
		}
		plan := basePlan()
		plan.Fallback = fallbackPlan()
		h := New(gen)

		out, err := h.Handle(context.Background(), plannedCmd(plan))
		if err != nil {
			t.Fatalf("Handle returned Go error: %v", err)
		}
		fin := out.(pipeline.FinalizedCommand)
		if fin.GenerationErr == nil {
			t.Fatal("GenerationErr not carried")
		}
		if len(gen.calls()) != 2 {
			t.Errorf("generate calls = %d, want exactly one fallback attempt", len(gen.calls()))
		}
	})

	t.Run("no fallback plan surfaces in command", func(t *testing.T) {
		gen := &fakeGenerator{}
		gen.respond = func(req *providers.GenerateRequest) (*pipeline.RawResponse, error) {
			return nil, errors.New("down")
		}
		h := New(gen)

		out, err := h.Handle(context.Background(), plannedCmd(basePlan()))
		if err != nil {
			t.Fatalf("Handle returned Go error: %v", err)
		}
		if out.(pipeline.FinalizedCommand).GenerationErr == nil {
			t.Fatal("GenerationErr not carried")
		}
		if len(gen.calls()) != 1 {
			t.Errorf("generate calls = %d, want 1", len(gen.calls()))
		}
	})
}

func TestObserveTokens(t *testing.T) {
	gen := &fakeGenerator{}
	gen.respond = func(req *providers.GenerateRequest) (*pipeline.RawResponse, error) {
		return &pipeline.RawResponse{Payload: "x", Usage: pipeline.Usage{TotalTokens: 80}}, nil
	}
	h := New(gen)

	fin := finalize(t, h, plannedCmd(basePlan()))
	if fin.Telemetry.ActualTokens != 80 {
		t.Errorf("ActualTokens = %d, want 80", fin.Telemetry.ActualTokens)
	}
	if fin.Telemetry.AccuracyRatio != 2.0 {
		t.Errorf("AccuracyRatio = %v, want 2.0", fin.Telemetry.AccuracyRatio)
	}
	if !fin.Telemetry.InRange {
		t.Error("80 should land inside [10, 100]")
	}
}
