package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	providertest "github.com/seanbrar/pollux/internal/providers"
	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

func newTestClient(t *testing.T, ms *providertest.MockServer) *Client {
	t.Helper()
	client, err := NewClient(providertest.TestFrozen(t, "gemini", ms.URL()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	frozen, err := config.Freeze(&config.Config{Provider: "gemini", Model: "test-model"})
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	_, err = NewClient(frozen)
	var ce *providers.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
}

func TestGenerate(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()

	const path = "/v1beta/models/test-model:generateContent"
	ms.RespondJSON(path, map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"text": "hello back"},
			}}},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     12,
			"candidatesTokenCount": 4,
			"totalTokenCount":      16,
		},
	})

	client := newTestClient(t, ms)
	raw, err := client.Generate(context.Background(), &providers.GenerateRequest{
		Model: "test-model",
		Parts: []pipeline.Part{pipeline.TextPart{Text: "hello"}},
		Config: pipeline.GenerationConfig{
			Temperature:  0.4,
			MaxTokens:    256,
			SystemPrompt: "be brief",
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if raw.Provider != "gemini" || raw.Model != "test-model" {
		t.Errorf("identity = %q/%q", raw.Provider, raw.Model)
	}
	if raw.Usage.TotalTokens != 16 || raw.Usage.PromptTokens != 12 {
		t.Errorf("usage = %+v", raw.Usage)
	}

	reqs := ms.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if reqs[0].Header.Get("x-goog-api-key") != "test-key" {
		t.Error("api key header not sent")
	}

	var body map[string]any
	if err := json.Unmarshal(reqs[0].Body, &body); err != nil {
		t.Fatalf("decoding request body: %v", err)
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("systemInstruction missing")
	}
	gc, ok := body["generationConfig"].(map[string]any)
	if !ok || gc["maxOutputTokens"] != float64(256) {
		t.Errorf("generationConfig = %v", body["generationConfig"])
	}
}

func TestGenerateWithCacheRef(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	const path = "/v1beta/models/test-model:generateContent"
	ms.RespondJSON(path, map[string]any{"candidates": []any{}})

	client := newTestClient(t, ms)
	_, err := client.Generate(context.Background(), &providers.GenerateRequest{
		Model:    "test-model",
		Parts:    []pipeline.Part{pipeline.TextPart{Text: "q"}},
		CacheRef: &pipeline.CacheReference{CacheID: "cachedContents/42"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(ms.Requests()[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["cachedContent"] != "cachedContents/42" {
		t.Errorf("cachedContent = %v", body["cachedContent"])
	}
}

func TestGenerateRejectsUnresolvedPlaceholder(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	client := newTestClient(t, ms)

	_, err := client.Generate(context.Background(), &providers.GenerateRequest{
		Model: "test-model",
		Parts: []pipeline.Part{pipeline.FilePlaceholder{SourceIndex: 0, Required: true}},
	})
	var pe *providers.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
	if ms.RequestCount("/v1beta/models/test-model:generateContent") != 0 {
		t.Error("request sent despite unresolved placeholder")
	}
}

func TestUploadFile(t *testing.T) {
	t.Run("immediately active", func(t *testing.T) {
		ms := providertest.NewMockServer()
		defer ms.Close()
		ms.RespondJSON("/upload/v1beta/files", map[string]any{
			"file": map[string]any{
				"name":  "files/abc",
				"uri":   "https://files/abc",
				"state": "ACTIVE",
			},
		})

		client := newTestClient(t, ms)
		ref, err := client.UploadFile(context.Background(), providertest.BinarySource("doc.pdf", "application/pdf", []byte("%PDF")))
		if err != nil {
			t.Fatalf("UploadFile: %v", err)
		}
		if ref.URI != "https://files/abc" {
			t.Errorf("URI = %q", ref.URI)
		}
		if ref.MIMEType != "application/pdf" {
			t.Errorf("MIMEType = %q", ref.MIMEType)
		}

		req := ms.Requests()[0]
		if string(req.Body) != "%PDF" {
			t.Errorf("uploaded body = %q", req.Body)
		}
		if req.Header.Get("X-Goog-Upload-Protocol") != "raw" {
			t.Error("upload protocol header missing")
		}
	})

	t.Run("polls until active", func(t *testing.T) {
		ms := providertest.NewMockServer()
		defer ms.Close()
		ms.RespondJSON("/upload/v1beta/files", map[string]any{
			"file": map[string]any{"name": "files/slow", "state": "PROCESSING"},
		})
		ms.RespondJSON("/v1beta/files/slow", map[string]any{
			"name": "files/slow", "state": "PROCESSING",
		})
		ms.RespondJSON("/v1beta/files/slow", map[string]any{
			"name": "files/slow", "uri": "https://files/slow", "state": "ACTIVE",
		})

		client := newTestClient(t, ms)
		client.pollInterval = time.Millisecond
		client.pollTimeout = time.Second

		ref, err := client.UploadFile(context.Background(), providertest.BinarySource("big.mp4", "video/mp4", []byte("vid")))
		if err != nil {
			t.Fatalf("UploadFile: %v", err)
		}
		if ref.URI != "https://files/slow" {
			t.Errorf("URI = %q", ref.URI)
		}
		if ms.RequestCount("/v1beta/files/slow") < 2 {
			t.Error("activation polling did not happen")
		}
	})

	t.Run("provider-side failure", func(t *testing.T) {
		ms := providertest.NewMockServer()
		defer ms.Close()
		ms.RespondJSON("/upload/v1beta/files", map[string]any{
			"file": map[string]any{"name": "files/bad", "state": "PROCESSING"},
		})
		ms.RespondJSON("/v1beta/files/bad", map[string]any{
			"name": "files/bad", "state": "FAILED",
		})

		client := newTestClient(t, ms)
		client.pollInterval = time.Millisecond
		client.pollTimeout = time.Second

		_, err := client.UploadFile(context.Background(), providertest.BinarySource("x.png", "image/png", []byte{1}))
		var pe *providers.ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want ProviderError", err)
		}
	})
}

func TestCreateCache(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	expire := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	ms.RespondJSON("/v1beta/cachedContents", map[string]any{
		"name":       "cachedContents/99",
		"expireTime": expire.Format(time.RFC3339),
	})

	client := newTestClient(t, ms)
	ref, err := client.CreateCache(context.Background(), "test-model",
		[]pipeline.Part{pipeline.TextPart{Text: "big corpus"}}, time.Hour)
	if err != nil {
		t.Fatalf("CreateCache: %v", err)
	}
	if ref.CacheID != "cachedContents/99" {
		t.Errorf("CacheID = %q", ref.CacheID)
	}
	if !ref.ExpiresAt.Equal(expire) {
		t.Errorf("ExpiresAt = %v, want %v", ref.ExpiresAt, expire)
	}

	var body map[string]any
	if err := json.Unmarshal(ms.Requests()[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["model"] != "models/test-model" {
		t.Errorf("model = %v", body["model"])
	}
	if body["ttl"] != "3600s" {
		t.Errorf("ttl = %v", body["ttl"])
	}
}

func TestGetCache(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ms := providertest.NewMockServer()
		defer ms.Close()
		ms.RespondJSON("/v1beta/cachedContents/7", map[string]any{
			"name": "cachedContents/7",
		})

		client := newTestClient(t, ms)
		ref, err := client.GetCache(context.Background(), "cachedContents/7")
		if err != nil {
			t.Fatalf("GetCache: %v", err)
		}
		if ref == nil || ref.CacheID != "cachedContents/7" {
			t.Errorf("ref = %v", ref)
		}
	})

	t.Run("expired provider-side means absent", func(t *testing.T) {
		ms := providertest.NewMockServer()
		defer ms.Close()
		ms.Respond("/v1beta/cachedContents/gone", providertest.MockResponse{
			StatusCode: http.StatusNotFound,
		})

		client := newTestClient(t, ms)
		ref, err := client.GetCache(context.Background(), "cachedContents/gone")
		if err != nil {
			t.Fatalf("GetCache: %v", err)
		}
		if ref != nil {
			t.Errorf("ref = %v, want nil", ref)
		}
	})
}

func TestBuildContents(t *testing.T) {
	parts := []pipeline.Part{
		pipeline.TextPart{Text: "hi"},
		pipeline.FileRefPart{URI: "u", MIMEType: "image/png"},
		pipeline.CacheReferencePart{CacheID: "c"},
	}
	out, err := buildContents(parts)
	if err != nil {
		t.Fatalf("buildContents: %v", err)
	}
	// The cache reference rides the request envelope, not the parts list.
	if len(out) != 2 {
		t.Fatalf("parts = %d, want 2", len(out))
	}
	if out[0].(map[string]any)["text"] != "hi" {
		t.Errorf("text part = %v", out[0])
	}
	fd := out[1].(map[string]any)["file_data"].(map[string]any)
	if fd["file_uri"] != "u" {
		t.Errorf("file part = %v", out[1])
	}
}
