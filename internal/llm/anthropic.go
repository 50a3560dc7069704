// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/ManuGH/chatrelay/internal/metrics"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	client  httpDoer
	limiter *rate.Limiter
}

// NewAnthropicClient creates a client. The API key must not be empty.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: anthropic API key not configured")
	}
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		client:  newHTTPClient(),
		limiter: newProviderLimiter(),
	}, nil
}

// Name returns "anthropic".
func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete sends one chat completion request. System prompts travel as the
// top-level "system" field; system-role messages are filtered from the list.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role != "system" {
			messages = append(messages, m)
		}
	}

	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	for k, v := range req.Parameters {
		payload[k] = v
	}
	if req.SystemPrompt != "" {
		payload["system"] = req.SystemPrompt
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: anthropic payload encode failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	timer := metrics.StartLLMRequest("anthropic", req.Model)
	resp, err := c.client.Do(httpReq)
	if err != nil {
		timer.Done("transport_error")
		return nil, fmt.Errorf("llm: anthropic request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		timer.Done("read_error")
		return nil, fmt.Errorf("llm: anthropic response read failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		timer.Done("api_error")
		return failure("anthropic", req.Model, apiErrorMessage(respBody, resp.StatusCode), map[string]any{
			"status_code": resp.StatusCode,
		}), nil
	}

	var data struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string         `json:"stop_reason"`
		Usage      map[string]any `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		timer.Done("decode_error")
		return nil, fmt.Errorf("llm: anthropic response decode failed: %w", err)
	}

	var text string
	if len(data.Content) > 0 {
		text = data.Content[0].Text
	}

	timer.Done("success")
	return &Response{
		Content: text,
		Metadata: map[string]any{
			"usage":       data.Usage,
			"model":       nonEmpty(data.Model, req.Model),
			"stop_reason": data.StopReason,
			"id":          data.ID,
			"type":        data.Type,
		},
		Provider: "anthropic",
		Model:    req.Model,
		Success:  true,
	}, nil
}

// apiErrorMessage extracts the provider's error message; both Anthropic and
// OpenAI nest it under error.message.
func apiErrorMessage(body []byte, statusCode int) string {
	var data struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &data); err == nil && data.Error.Message != "" {
		return data.Error.Message
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
