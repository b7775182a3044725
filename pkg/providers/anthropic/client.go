// Package anthropic implements the minimal provider adapter: generation
// only. Upload placeholders degrade to inline handling and cache steps are
// skipped when a plan executes against this adapter.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	// The messages API requires an explicit completion cap.
	defaultMaxTokens = 4096
)

func init() {
	providers.Register("anthropic", func(cfg *config.Frozen) (providers.Generator, error) {
		return NewClient(cfg)
	})
}

// Client is the Anthropic adapter.
type Client struct {
	http    *providers.HTTPClient
	apiKey  string
	baseURL string
}

// NewClient creates an Anthropic adapter from frozen configuration. The
// "anthropic_base_url" extension key overrides the API endpoint.
func NewClient(cfg *config.Frozen) (*Client, error) {
	if cfg.APIKey() == "" {
		return nil, &providers.ConfigError{Provider: "anthropic", Field: "api_key", Message: "missing API key"}
	}
	baseURL := defaultBaseURL
	if v, ok := cfg.Extra("anthropic_base_url"); ok {
		baseURL = v
	}
	return &Client{
		http:    providers.NewHTTPClient(providers.HTTPClientConfig{Provider: "anthropic"}),
		apiKey:  cfg.APIKey(),
		baseURL: baseURL,
	}, nil
}

// Provider implements providers.Generator.
func (c *Client) Provider() string { return "anthropic" }

// Generate implements providers.Generator.
func (c *Client) Generate(ctx context.Context, req *providers.GenerateRequest) (*pipeline.RawResponse, error) {
	body, err := buildMessagesBody(req)
	if err != nil {
		return nil, err
	}

	url := providers.BuildURL(c.baseURL, "/v1/messages")
	var payload map[string]any
	if err := c.http.DoJSON(ctx, http.MethodPost, url, c.headers(), body, &payload); err != nil {
		return nil, err
	}

	return &pipeline.RawResponse{
		Provider: "anthropic",
		Model:    req.Model,
		Payload:  payload,
		Usage:    extractUsage(payload),
	}, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
	}
}

func buildMessagesBody(req *providers.GenerateRequest) (map[string]any, error) {
	var texts []string
	for _, part := range req.Parts {
		switch p := part.(type) {
		case pipeline.TextPart:
			texts = append(texts, p.Text)
		case pipeline.FileRefPart:
			// No upload capability issued this reference; it can only be
			// a pass-through URI (e.g. YouTube), which this API cannot
			// consume. Degrade to naming it.
			texts = append(texts, p.URI)
		case pipeline.CacheReferencePart:
		case pipeline.FilePlaceholder:
			return nil, &providers.ProviderError{
				Provider: "anthropic",
				Message:  fmt.Sprintf("unresolved upload placeholder for source index %d", p.SourceIndex),
			}
		default:
			return nil, &providers.ProviderError{
				Provider: "anthropic",
				Message:  fmt.Sprintf("unsupported part kind %q", part.Kind()),
			}
		}
	}

	maxTokens := req.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := map[string]any{
		"model":      req.Model,
		"max_tokens": maxTokens,
		"messages": []any{
			map[string]any{"role": "user", "content": strings.Join(texts, "\n\n")},
		},
	}
	if req.Config.SystemPrompt != "" {
		body["system"] = req.Config.SystemPrompt
	}
	if req.Config.Temperature > 0 {
		body["temperature"] = req.Config.Temperature
	}
	return body, nil
}

func extractUsage(payload map[string]any) pipeline.Usage {
	usage, ok := payload["usage"].(map[string]any)
	if !ok {
		return pipeline.Usage{}
	}
	in := intField(usage, "input_tokens")
	out := intField(usage, "output_tokens")
	return pipeline.Usage{
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
	}
}

func intField(m map[string]any, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
