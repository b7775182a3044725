package openai

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	providertest "github.com/seanbrar/pollux/internal/providers"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

func newTestClient(t *testing.T, ms *providertest.MockServer) *Client {
	t.Helper()
	client, err := NewClient(providertest.TestFrozen(t, "openai", ms.URL()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerate(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	ms.RespondJSON("/chat/completions", map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": "reply"}},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	})

	client := newTestClient(t, ms)
	raw, err := client.Generate(context.Background(), &providers.GenerateRequest{
		Model: "test-model",
		Parts: []pipeline.Part{
			pipeline.TextPart{Text: "first"},
			pipeline.TextPart{Text: "second"},
		},
		Config: pipeline.GenerationConfig{SystemPrompt: "terse", MaxTokens: 100},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if raw.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", raw.Usage)
	}

	req := ms.Requests()[0]
	if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization = %q", got)
	}

	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatal(err)
	}
	messages := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want system + user", len(messages))
	}
	if messages[0].(map[string]any)["role"] != "system" {
		t.Errorf("first message = %v", messages[0])
	}
	user := messages[1].(map[string]any)
	content, ok := user["content"].(string)
	if !ok || !strings.Contains(content, "first") || !strings.Contains(content, "second") {
		t.Errorf("user content = %v, want coalesced texts", user["content"])
	}
	if body["max_tokens"] != float64(100) {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
}

func TestGenerateWithFileBlocks(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	ms.RespondJSON("/chat/completions", map[string]any{"choices": []any{}})

	client := newTestClient(t, ms)
	_, err := client.Generate(context.Background(), &providers.GenerateRequest{
		Model: "test-model",
		Parts: []pipeline.Part{
			pipeline.TextPart{Text: "describe this"},
			pipeline.FileRefPart{URI: "file-123", MIMEType: "application/pdf"},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(ms.Requests()[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	user := body["messages"].([]any)[0].(map[string]any)
	blocks, ok := user["content"].([]any)
	if !ok {
		t.Fatalf("content = %T, want block list when files present", user["content"])
	}
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want file + text", len(blocks))
	}
	fileBlock := blocks[0].(map[string]any)
	if fileBlock["type"] != "file" {
		t.Errorf("block 0 = %v", fileBlock)
	}
	if fileBlock["file"].(map[string]any)["file_id"] != "file-123" {
		t.Errorf("file block = %v", fileBlock)
	}
}

func TestUploadFile(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	ms.RespondJSON("/files", map[string]any{"id": "file-xyz"})

	client := newTestClient(t, ms)
	ref, err := client.UploadFile(context.Background(), providertest.BinarySource("report.pdf", "application/pdf", []byte("%PDF-1.7")))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if ref.URI != "file-xyz" {
		t.Errorf("URI = %q", ref.URI)
	}

	req := ms.Requests()[0]
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		t.Errorf("Content-Type = %q, want multipart form", req.Header.Get("Content-Type"))
	}
	body := string(req.Body)
	if !strings.Contains(body, "user_data") || !strings.Contains(body, "%PDF-1.7") {
		t.Error("multipart body missing purpose field or file content")
	}
}

func TestNoCacheCapability(t *testing.T) {
	ms := providertest.NewMockServer()
	defer ms.Close()
	client := newTestClient(t, ms)

	if providers.SupportsCaching(client) {
		t.Error("openai adapter should not report cache support")
	}
	if !providers.SupportsUpload(client) {
		t.Error("openai adapter should report upload support")
	}
}
