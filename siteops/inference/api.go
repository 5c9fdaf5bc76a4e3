package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// ErrEmptyResponse is returned when a chat response carries no message.
var ErrEmptyResponse = errors.New("response has no message")

// Chat sends a non-streaming chat request and returns the full response.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	req.Stream = false
	req.Options = c.NormalizeOptions(req.Options)

	var out ChatResponse
	if err := c.call(ctx, http.MethodPost, "/api/chat", req, &out); err != nil {
		return nil, err
	}
	if out.Message == nil {
		return nil, ErrEmptyResponse
	}
	return &out, nil
}

// ChatStream sends a streaming chat request. The returned stream must be
// iterated or closed to release the connection.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) (*Stream[ChatResponse], error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	req.Stream = true
	req.Options = c.NormalizeOptions(req.Options)

	resp, err := c.send(ctx, http.MethodPost, "/api/chat", req)
	if err != nil {
		return nil, err
	}
	return newStream[ChatResponse](resp.Body, c.logger), nil
}

// Generate sends a non-streaming completion request.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	req.Stream = false
	req.Options = c.NormalizeOptions(req.Options)

	var out GenerateResponse
	if err := c.call(ctx, http.MethodPost, "/api/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeImage asks a vision-capable model to describe a base64 image.
func (c *Client) AnalyzeImage(ctx context.Context, model, imageBase64, prompt string) (string, error) {
	if imageBase64 == "" {
		return "", fmt.Errorf("image is required")
	}
	if prompt == "" {
		prompt = "Describe this image."
	}
	resp, err := c.Generate(ctx, GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Images: []string{imageBase64},
	})
	if err != nil {
		return "", fmt.Errorf("image analysis failed: %w", err)
	}
	return resp.Response, nil
}

// ListModels returns the installed models sorted by name. Any failure
// yields an empty list; an unreachable runtime and an empty one look the
// same to callers.
func (c *Client) ListModels(ctx context.Context) []ModelDescriptor {
	var tags tagsResponse
	if err := c.call(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		c.logger.Warn().Err(err).Str("base_url", c.BaseURL).Msg("Failed to list models")
		return []ModelDescriptor{}
	}

	out := make([]ModelDescriptor, 0, len(tags.Models))
	for _, m := range tags.Models {
		out = append(out, ModelDescriptor{
			Name:          m.Name,
			SizeBytes:     m.Size,
			ModifiedAt:    m.ModifiedAt,
			Family:        m.Details.Family,
			ParameterSize: m.Details.ParameterSize,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasModel reports whether name is among the installed models.
func (c *Client) HasModel(ctx context.Context, name string) bool {
	for _, m := range c.ListModels(ctx) {
		if m.Name == name {
			return true
		}
	}
	return false
}

func showCacheKey(name string) string { return "inference:show:" + name }

// ShowModel returns model metadata, memoised when a cache is configured.
func (c *Client) ShowModel(ctx context.Context, name string) (*ModelDetails, error) {
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}

	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, showCacheKey(name)); ok {
			var cached ModelDetails
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var out ModelDetails
	if err := c.call(ctx, http.MethodPost, "/api/show", nameRequest{Name: name}, &out); err != nil {
		return nil, fmt.Errorf("failed to show model %s: %w", name, err)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := c.cache.Set(ctx, showCacheKey(name), raw, c.cacheTTL); err != nil {
				c.logger.Debug().Err(err).Str("model", name).Msg("Failed to cache model details")
			}
		}
	}
	return &out, nil
}

// PullModel downloads a model, reporting each progress event to onProgress
// (which may be nil). It returns true once the runtime reports success.
func (c *Client) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("model name is required")
	}
	defer c.invalidate(ctx, name)

	stream := true
	resp, err := c.send(ctx, http.MethodPost, "/api/pull", nameRequest{Name: name, Stream: &stream})
	if err != nil {
		return false, fmt.Errorf("failed to pull model %s: %w", name, err)
	}

	progress := newStream[PullProgress](resp.Body, c.logger)
	defer progress.Close()

	success := false
	for event, err := range progress.All() {
		if err != nil {
			return false, fmt.Errorf("failed to pull model %s: %w", name, err)
		}
		if event.Error != "" {
			return false, fmt.Errorf("failed to pull model %s: %s", name, event.Error)
		}
		if onProgress != nil {
			onProgress(event)
		}
		if event.Status == "success" {
			success = true
		}
	}

	c.logger.Info().Str("model", name).Bool("success", success).Msg("Model pull finished")
	return success, nil
}

// DeleteModel removes a model. A model the runtime does not know reports false.
func (c *Client) DeleteModel(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("model name is required")
	}
	defer c.invalidate(ctx, name)

	err := c.call(ctx, http.MethodDelete, "/api/delete", nameRequest{Name: name}, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete model %s: %w", name, err)
	}
	return true, nil
}

// IsAvailable probes the runtime. Any failure means unavailable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	resp, err := c.send(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Inference runtime unavailable")
		return false
	}
	resp.Body.Close()
	return true
}

func (c *Client) invalidate(ctx context.Context, name string) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Delete(ctx, showCacheKey(name))
}
