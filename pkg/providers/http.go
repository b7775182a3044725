package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// HTTPClient is the shared transport base for HTTP provider adapters:
// connection pooling, bounded retries with exponential backoff, and the
// translation of transport failures into the adapter error taxonomy.
type HTTPClient struct {
	provider   string
	client     *http.Client
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	// Provider is the adapter name used in wrapped errors.
	Provider string

	// Timeout is the per-request transport timeout.
	// Default: 60s
	Timeout time.Duration

	// MaxRetries bounds retry attempts for transient failures (5xx).
	// Default: 2
	MaxRetries int

	// MaxIdleConns and MaxIdleConnsPerHost tune the connection pool.
	// Defaults: 100 and 10.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

// NewHTTPClient creates a pooled HTTP client base.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 10
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		provider:   cfg.Provider,
		client:     &http.Client{Transport: transport, Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		logger:     slog.Default().With("component", "providers."+cfg.Provider),
	}
}

// DoJSON performs a request with a JSON body and decodes a JSON response
// into out. 5xx responses are retried with exponential backoff; 4xx
// responses are classified and returned immediately.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &ProviderError{Provider: c.provider, Message: "encoding request body", Cause: err}
		}
	}
	data, err := c.DoRaw(ctx, method, url, headers, payload, "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{Provider: c.provider, RawResponse: string(data), Cause: err}
	}
	return nil
}

// DoRaw performs a request with an arbitrary body and returns the response
// bytes. Retry and classification behavior matches DoJSON.
func (c *HTTPClient) DoRaw(ctx context.Context, method, url string, headers map[string]string, body []byte, contentType string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, &ProviderError{Provider: c.provider, Message: "creating request", Cause: err}
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if body != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				lastErr = &TimeoutError{Provider: c.provider, Timeout: c.timeout}
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &ProviderError{Provider: c.provider, Message: "transport failure", Cause: err}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &ProviderError{Provider: c.provider, Message: "reading response body", Cause: readErr}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &AuthError{Provider: c.provider, Message: bodyMessage(data)}
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   c.provider,
				RetryAfter: retryAfter(resp),
				Message:    bodyMessage(data),
			}
		case resp.StatusCode >= 500:
			lastErr = &ProviderError{
				Provider:   c.provider,
				StatusCode: resp.StatusCode,
				Message:    bodyMessage(data),
			}
			continue
		default:
			return nil, &ProviderError{
				Provider:   c.provider,
				StatusCode: resp.StatusCode,
				Message:    bodyMessage(data),
			}
		}
	}

	if lastErr == nil {
		lastErr = &ProviderError{Provider: c.provider, Message: "request failed with no attempts"}
	}
	return nil, lastErr
}

// PollUntil repeatedly calls check with exponential backoff until it
// reports done, the timeout elapses, or the context is cancelled. Used for
// provider-side upload activation.
func (c *HTTPClient) PollUntil(ctx context.Context, interval, timeout time.Duration, check func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	delay := interval
	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().Add(delay).After(deadline) {
			return &TimeoutError{Provider: c.provider, Timeout: timeout}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > 10*time.Second {
			delay = 10 * time.Second
		}
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func bodyMessage(data []byte) string {
	// Providers put human-readable detail in different envelopes; surface
	// the message field when one decodes, the raw body otherwise.
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	const limit = 512
	msg := string(data)
	if len(msg) > limit {
		msg = msg[:limit]
	}
	if msg == "" {
		msg = "no response body"
	}
	return msg
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		return time.Until(at)
	}
	return 0
}

// BuildURL joins a base URL and path without double slashes.
func BuildURL(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if len(path) > 0 && path[0] != '/' {
		path = "/" + path
	}
	return fmt.Sprintf("%s%s", base, path)
}
