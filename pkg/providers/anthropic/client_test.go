package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	providertest "github.com/seanbrar/pollux/internal/providers"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

func newTestClient(t *testing.T, ms *providertest.MockServer) *Client {
	t.Helper()
	client, err := NewClient(providertest.TestFrozen(t, "anthropic", ms.URL()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerate(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	ms.RespondJSON("/v1/messages", map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": "the answer"},
		},
		"usage": map[string]any{
			"input_tokens":  30,
			"output_tokens": 12,
		},
	})

	client := newTestClient(t, ms)
	raw, err := client.Generate(context.Background(), &providers.GenerateRequest{
		Model: "test-model",
		Parts: []pipeline.Part{pipeline.TextPart{Text: "question"}},
		Config: pipeline.GenerationConfig{
			SystemPrompt: "answer plainly",
			Temperature:  0.3,
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if raw.Usage.TotalTokens != 42 {
		t.Errorf("TotalTokens = %d, want input+output", raw.Usage.TotalTokens)
	}

	req := ms.Requests()[0]
	if req.Header.Get("x-api-key") != "test-key" {
		t.Error("api key header not sent")
	}
	if req.Header.Get("anthropic-version") == "" {
		t.Error("version header not sent")
	}

	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["system"] != "answer plainly" {
		t.Errorf("system = %v", body["system"])
	}
	if body["max_tokens"] != float64(defaultMaxTokens) {
		t.Errorf("max_tokens = %v, want adapter default when unset", body["max_tokens"])
	}
	if body["temperature"] != 0.3 {
		t.Errorf("temperature = %v", body["temperature"])
	}
}

func TestGenerateRejectsPlaceholder(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	client := newTestClient(t, ms)

	_, err := client.Generate(context.Background(), &providers.GenerateRequest{
		Model: "test-model",
		Parts: []pipeline.Part{pipeline.FilePlaceholder{SourceIndex: 0}},
	})
	var pe *providers.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
}

func TestGenerationOnlyCapabilities(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	client := newTestClient(t, ms)

	if providers.SupportsUpload(client) {
		t.Error("anthropic adapter should not report upload support")
	}
	if providers.SupportsCaching(client) {
		t.Error("anthropic adapter should not report cache support")
	}
}
