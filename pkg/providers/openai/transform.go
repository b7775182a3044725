package openai

import (
	"fmt"
	"strings"

	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

// buildChatBody converts a neutral generate request into the chat
// completions wire shape. Text parts coalesce into one user message; file
// references become file content blocks.
func buildChatBody(req *providers.GenerateRequest) (map[string]any, error) {
	var texts []string
	var blocks []any

	for _, part := range req.Parts {
		switch p := part.(type) {
		case pipeline.TextPart:
			texts = append(texts, p.Text)
		case pipeline.FileRefPart:
			blocks = append(blocks, map[string]any{
				"type": "file",
				"file": map[string]any{"file_id": p.URI},
			})
		case pipeline.CacheReferencePart:
			// No caching capability; the API handler never routes cache
			// parts here, but tolerate them rather than fail generation.
		case pipeline.FilePlaceholder:
			return nil, &providers.ProviderError{
				Provider: "openai",
				Message:  fmt.Sprintf("unresolved upload placeholder for source index %d", p.SourceIndex),
			}
		default:
			return nil, &providers.ProviderError{
				Provider: "openai",
				Message:  fmt.Sprintf("unsupported part kind %q", part.Kind()),
			}
		}
	}

	var content any
	if len(blocks) > 0 {
		if len(texts) > 0 {
			blocks = append(blocks, map[string]any{
				"type": "text",
				"text": strings.Join(texts, "\n\n"),
			})
		}
		content = blocks
	} else {
		content = strings.Join(texts, "\n\n")
	}

	messages := make([]any, 0, 2)
	if req.Config.SystemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.Config.SystemPrompt})
	}
	messages = append(messages, map[string]any{"role": "user", "content": content})

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	if req.Config.Temperature > 0 {
		body["temperature"] = req.Config.Temperature
	}
	if req.Config.MaxTokens > 0 {
		body["max_tokens"] = req.Config.MaxTokens
	}
	return body, nil
}
