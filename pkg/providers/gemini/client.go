package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/providers"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

func init() {
	providers.Register("gemini", func(cfg *config.Frozen) (providers.Generator, error) {
		return NewClient(cfg)
	})
}

// Client is the Gemini adapter. It implements all three capabilities:
// generation, uploads (Files API with activation polling), and caching
// (cachedContents).
type Client struct {
	http    *providers.HTTPClient
	apiKey  string
	baseURL string

	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewClient creates a Gemini adapter from frozen configuration. The
// "gemini_base_url" extension key overrides the API endpoint, which is how
// tests point the adapter at a local server.
func NewClient(cfg *config.Frozen) (*Client, error) {
	if cfg.APIKey() == "" {
		return nil, &providers.ConfigError{Provider: "gemini", Field: "api_key", Message: "missing API key"}
	}
	baseURL := defaultBaseURL
	if v, ok := cfg.Extra("gemini_base_url"); ok {
		baseURL = v
	}
	return &Client{
		http:         providers.NewHTTPClient(providers.HTTPClientConfig{Provider: "gemini"}),
		apiKey:       cfg.APIKey(),
		baseURL:      baseURL,
		pollInterval: cfg.UploadPollInterval(),
		pollTimeout:  cfg.UploadPollTimeout(),
	}, nil
}

// Provider implements providers.Generator.
func (c *Client) Provider() string { return "gemini" }

// Generate implements providers.Generator.
func (c *Client) Generate(ctx context.Context, req *providers.GenerateRequest) (*pipeline.RawResponse, error) {
	body, err := buildGenerateBody(req)
	if err != nil {
		return nil, err
	}

	url := providers.BuildURL(c.baseURL, fmt.Sprintf("/v1beta/models/%s:generateContent", req.Model))
	var payload map[string]any
	if err := c.http.DoJSON(ctx, http.MethodPost, url, c.headers(), body, &payload); err != nil {
		return nil, err
	}

	return &pipeline.RawResponse{
		Provider: "gemini",
		Model:    req.Model,
		Payload:  payload,
		Usage:    extractUsage(payload),
	}, nil
}

// UploadFile implements providers.Uploader. The returned reference is only
// handed back once the provider reports the file ACTIVE; processing state
// is polled with exponential backoff.
func (c *Client) UploadFile(ctx context.Context, src pipeline.Source) (pipeline.FileRefPart, error) {
	content, err := src.Content()
	if err != nil {
		return pipeline.FileRefPart{}, &providers.ProviderError{
			Provider: "gemini",
			Message:  fmt.Sprintf("reading source %q for upload", src.Identifier),
			Cause:    err,
		}
	}

	mime := src.MIMEType
	if mime == "" {
		mime = "application/octet-stream"
	}

	url := providers.BuildURL(c.baseURL, "/upload/v1beta/files")
	headers := c.headers()
	headers["X-Goog-Upload-Protocol"] = "raw"
	headers["X-Goog-File-Name"] = src.Identifier

	data, err := c.http.DoRaw(ctx, http.MethodPost, url, headers, content, mime)
	if err != nil {
		return pipeline.FileRefPart{}, err
	}

	var uploaded struct {
		File fileInfo `json:"file"`
	}
	if err := json.Unmarshal(data, &uploaded); err != nil {
		return pipeline.FileRefPart{}, &providers.ParseError{Provider: "gemini", RawResponse: string(data), Cause: err}
	}

	info := uploaded.File
	if info.State != "ACTIVE" {
		info, err = c.awaitActive(ctx, info.Name)
		if err != nil {
			return pipeline.FileRefPart{}, err
		}
	}

	return pipeline.FileRefPart{URI: info.URI, MIMEType: mime}, nil
}

// CreateCache implements providers.Cacher.
func (c *Client) CreateCache(ctx context.Context, model string, parts []pipeline.Part, ttl time.Duration) (pipeline.CacheReference, error) {
	contents, err := buildContents(parts)
	if err != nil {
		return pipeline.CacheReference{}, err
	}
	body := map[string]any{
		"model":    "models/" + model,
		"contents": contents,
		"ttl":      fmt.Sprintf("%ds", int(ttl.Seconds())),
	}

	url := providers.BuildURL(c.baseURL, "/v1beta/cachedContents")
	var created cachedContent
	if err := c.http.DoJSON(ctx, http.MethodPost, url, c.headers(), body, &created); err != nil {
		return pipeline.CacheReference{}, err
	}
	return created.reference(), nil
}

// GetCache implements providers.Cacher.
func (c *Client) GetCache(ctx context.Context, id string) (*pipeline.CacheReference, error) {
	url := providers.BuildURL(c.baseURL, "/v1beta/"+id)
	var found cachedContent
	if err := c.http.DoJSON(ctx, http.MethodGet, url, c.headers(), nil, &found); err != nil {
		var pe *providers.ProviderError
		if errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	ref := found.reference()
	return &ref, nil
}

func (c *Client) awaitActive(ctx context.Context, name string) (fileInfo, error) {
	var info fileInfo
	url := providers.BuildURL(c.baseURL, "/v1beta/"+name)
	err := c.http.PollUntil(ctx, c.pollInterval, c.pollTimeout, func(ctx context.Context) (bool, error) {
		if err := c.http.DoJSON(ctx, http.MethodGet, url, c.headers(), nil, &info); err != nil {
			return false, err
		}
		switch info.State {
		case "ACTIVE":
			return true, nil
		case "FAILED":
			return false, &providers.ProviderError{
				Provider: "gemini",
				Message:  fmt.Sprintf("upload %q failed provider-side processing", name),
			}
		default:
			return false, nil
		}
	})
	return info, err
}

func (c *Client) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.apiKey}
}

type fileInfo struct {
	Name  string `json:"name"`
	URI   string `json:"uri"`
	State string `json:"state"`
}

type cachedContent struct {
	Name       string    `json:"name"`
	CreateTime time.Time `json:"createTime"`
	ExpireTime time.Time `json:"expireTime"`
}

func (cc cachedContent) reference() pipeline.CacheReference {
	created := cc.CreateTime
	if created.IsZero() {
		created = time.Now()
	}
	return pipeline.CacheReference{
		CacheID:   cc.Name,
		CreatedAt: created,
		ExpiresAt: cc.ExpireTime,
	}
}
