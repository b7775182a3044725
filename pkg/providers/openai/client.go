package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

func init() {
	providers.Register("openai", func(cfg *config.Frozen) (providers.Generator, error) {
		return NewClient(cfg)
	})
}

// Client is the OpenAI adapter: generation plus uploads, no caching. Cache
// steps in a plan are silently skipped against this adapter.
type Client struct {
	http    *providers.HTTPClient
	apiKey  string
	baseURL string
}

// NewClient creates an OpenAI adapter from frozen configuration. The
// "openai_base_url" extension key overrides the API endpoint.
func NewClient(cfg *config.Frozen) (*Client, error) {
	if cfg.APIKey() == "" {
		return nil, &providers.ConfigError{Provider: "openai", Field: "api_key", Message: "missing API key"}
	}
	baseURL := defaultBaseURL
	if v, ok := cfg.Extra("openai_base_url"); ok {
		baseURL = v
	}
	return &Client{
		http:    providers.NewHTTPClient(providers.HTTPClientConfig{Provider: "openai"}),
		apiKey:  cfg.APIKey(),
		baseURL: baseURL,
	}, nil
}

// Provider implements providers.Generator.
func (c *Client) Provider() string { return "openai" }

// Generate implements providers.Generator.
func (c *Client) Generate(ctx context.Context, req *providers.GenerateRequest) (*pipeline.RawResponse, error) {
	body, err := buildChatBody(req)
	if err != nil {
		return nil, err
	}

	url := providers.BuildURL(c.baseURL, "/chat/completions")
	var payload map[string]any
	if err := c.http.DoJSON(ctx, http.MethodPost, url, c.headers(), body, &payload); err != nil {
		return nil, err
	}

	return &pipeline.RawResponse{
		Provider: "openai",
		Model:    req.Model,
		Payload:  payload,
		Usage:    extractUsage(payload),
	}, nil
}

// UploadFile implements providers.Uploader via the Files API.
func (c *Client) UploadFile(ctx context.Context, src pipeline.Source) (pipeline.FileRefPart, error) {
	content, err := src.Content()
	if err != nil {
		return pipeline.FileRefPart{}, &providers.ProviderError{
			Provider: "openai",
			Message:  fmt.Sprintf("reading source %q for upload", src.Identifier),
			Cause:    err,
		}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "user_data"); err != nil {
		return pipeline.FileRefPart{}, &providers.ProviderError{Provider: "openai", Message: "building upload form", Cause: err}
	}
	fw, err := mw.CreateFormFile("file", src.Identifier)
	if err != nil {
		return pipeline.FileRefPart{}, &providers.ProviderError{Provider: "openai", Message: "building upload form", Cause: err}
	}
	if _, err := fw.Write(content); err != nil {
		return pipeline.FileRefPart{}, &providers.ProviderError{Provider: "openai", Message: "building upload form", Cause: err}
	}
	mw.Close()

	url := providers.BuildURL(c.baseURL, "/files")
	data, err := c.http.DoRaw(ctx, http.MethodPost, url, c.headers(), buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return pipeline.FileRefPart{}, err
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &uploaded); err != nil {
		return pipeline.FileRefPart{}, &providers.ParseError{Provider: "openai", RawResponse: string(data), Cause: err}
	}
	return pipeline.FileRefPart{URI: uploaded.ID, MIMEType: src.MIMEType}, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func extractUsage(payload map[string]any) pipeline.Usage {
	usage, ok := payload["usage"].(map[string]any)
	if !ok {
		return pipeline.Usage{}
	}
	return pipeline.Usage{
		PromptTokens:     intField(usage, "prompt_tokens"),
		CompletionTokens: intField(usage, "completion_tokens"),
		TotalTokens:      intField(usage, "total_tokens"),
	}
}

func intField(m map[string]any, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
