// Package inference is the HTTP gateway to an Ollama-compatible model
// runtime: chat (blocking and streamed), generate, and model management.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 5 * time.Minute
)

// Cache is the memoisation surface used for model metadata.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Defaults are the sampling values used when a request leaves them unset.
type Defaults struct {
	Temperature float64
	TopP        float64
	TopK        int
	NumPredict  int // -1 is unbounded
}

func DefaultOptions() Defaults {
	return Defaults{Temperature: 0.7, TopP: 0.9, TopK: 40, NumPredict: -1}
}

// Client talks to the model runtime.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	logger   zerolog.Logger
	cache    Cache
	cacheTTL int
	defaults Defaults
}

func NewClient(options ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
		defaults:   DefaultOptions(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// NormalizeOptions fills every unset sampling field from the client defaults.
func (c *Client) NormalizeOptions(in *Options) *Options {
	out := &Options{}
	if in != nil {
		*out = *in
	}
	if out.Temperature == nil {
		v := c.defaults.Temperature
		out.Temperature = &v
	}
	if out.TopP == nil {
		v := c.defaults.TopP
		out.TopP = &v
	}
	if out.TopK == nil {
		v := c.defaults.TopK
		out.TopK = &v
	}
	if out.NumPredict == nil {
		v := c.defaults.NumPredict
		out.NumPredict = &v
	}
	return out
}

// APIError is a non-2xx response from the runtime.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// send issues a JSON request and returns the open response on 2xx. The
// caller owns the body.
func (c *Client) send(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

// call sends a request and decodes a single JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
