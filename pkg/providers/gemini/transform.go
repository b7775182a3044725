package gemini

import (
	"fmt"

	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

// buildGenerateBody converts a neutral generate request into the
// generateContent wire shape.
func buildGenerateBody(req *providers.GenerateRequest) (map[string]any, error) {
	contents, err := buildContents(req.Parts)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"contents": []any{
			map[string]any{
				"role":  "user",
				"parts": contents,
			},
		},
	}

	genConfig := map[string]any{}
	if req.Config.Temperature > 0 {
		genConfig["temperature"] = req.Config.Temperature
	}
	if req.Config.MaxTokens > 0 {
		genConfig["maxOutputTokens"] = req.Config.MaxTokens
	}
	if len(genConfig) > 0 {
		body["generationConfig"] = genConfig
	}

	if req.Config.SystemPrompt != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []any{map[string]any{"text": req.Config.SystemPrompt}},
		}
	}
	if req.CacheRef != nil {
		body["cachedContent"] = req.CacheRef.CacheID
	}
	return body, nil
}

// buildContents converts neutral parts into Gemini part objects. Upload
// placeholders must have been resolved or dropped by the API handler before
// the adapter sees the parts.
func buildContents(parts []pipeline.Part) ([]any, error) {
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case pipeline.TextPart:
			out = append(out, map[string]any{"text": p.Text})
		case pipeline.FileRefPart:
			out = append(out, map[string]any{
				"file_data": map[string]any{
					"file_uri":  p.URI,
					"mime_type": p.MIMEType,
				},
			})
		case pipeline.CacheReferencePart:
			// Cache references ride the request's cachedContent field,
			// not the parts list.
		case pipeline.FilePlaceholder:
			return nil, &providers.ProviderError{
				Provider: "gemini",
				Message:  fmt.Sprintf("unresolved upload placeholder for source index %d", p.SourceIndex),
			}
		default:
			return nil, &providers.ProviderError{
				Provider: "gemini",
				Message:  fmt.Sprintf("unsupported part kind %q", part.Kind()),
			}
		}
	}
	return out, nil
}

// extractUsage pulls token accounting out of a generateContent payload.
// Missing or malformed usage metadata yields zeroes, never an error.
func extractUsage(payload map[string]any) pipeline.Usage {
	meta, ok := payload["usageMetadata"].(map[string]any)
	if !ok {
		return pipeline.Usage{}
	}
	return pipeline.Usage{
		PromptTokens:     intField(meta, "promptTokenCount"),
		CompletionTokens: intField(meta, "candidatesTokenCount"),
		TotalTokens:      intField(meta, "totalTokenCount"),
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
