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

const openaiBaseURL = "https://api.openai.com/v1/chat/completions"

// Tool describes a function the model may call.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// ToolCallResult carries the arguments of a single tool invocation.
type ToolCallResult struct {
	Name      string
	Arguments json.RawMessage
	Metadata  map[string]any
}

// OpenAIClient talks to the OpenAI Chat Completions API.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  httpDoer
	limiter *rate.Limiter
}

// NewOpenAIClient creates a client. The API key must not be empty.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: openai API key not configured")
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: openaiBaseURL,
		client:  newHTTPClient(),
		limiter: newProviderLimiter(),
	}, nil
}

// Name returns "openai".
func (c *OpenAIClient) Name() string { return "openai" }

// Complete sends one chat completion request. A system prompt is prepended
// as the first message.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := c.basePayload(req)

	timer := metrics.StartLLMRequest("openai", req.Model)
	respBody, statusCode, err := c.post(ctx, payload)
	if err != nil {
		timer.Done("transport_error")
		return nil, err
	}
	if statusCode != http.StatusOK {
		timer.Done("api_error")
		return failure("openai", req.Model, apiErrorMessage(respBody, statusCode), map[string]any{
			"status_code": statusCode,
		}), nil
	}

	var data struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage map[string]any `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		timer.Done("decode_error")
		return nil, fmt.Errorf("llm: openai response decode failed: %w", err)
	}
	if len(data.Choices) == 0 {
		timer.Done("empty_response")
		return failure("openai", req.Model, "no choices in response", nil), nil
	}

	timer.Done("success")
	return &Response{
		Content: data.Choices[0].Message.Content,
		Metadata: map[string]any{
			"usage":         data.Usage,
			"model":         nonEmpty(data.Model, req.Model),
			"finish_reason": data.Choices[0].FinishReason,
			"id":            data.ID,
		},
		Provider: "openai",
		Model:    req.Model,
		Success:  true,
	}, nil
}

// ToolCall forces the model through a single function and returns its
// arguments. Used by the control layer for structured orchestration output.
func (c *OpenAIClient) ToolCall(ctx context.Context, req Request, tool Tool) (*ToolCallResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := c.basePayload(req)
	payload["tools"] = []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
				"strict":      tool.Strict,
			},
		},
	}
	payload["tool_choice"] = map[string]any{
		"type":     "function",
		"function": map[string]any{"name": tool.Name},
	}

	timer := metrics.StartLLMRequest("openai", req.Model)
	respBody, statusCode, err := c.post(ctx, payload)
	if err != nil {
		timer.Done("transport_error")
		return nil, err
	}
	if statusCode != http.StatusOK {
		timer.Done("api_error")
		return nil, fmt.Errorf("llm: openai tool call failed: %s", apiErrorMessage(respBody, statusCode))
	}

	var data struct {
		Choices []struct {
			Message struct {
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
		Usage map[string]any `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		timer.Done("decode_error")
		return nil, fmt.Errorf("llm: openai tool call decode failed: %w", err)
	}
	if len(data.Choices) == 0 || len(data.Choices[0].Message.ToolCalls) == 0 {
		timer.Done("empty_response")
		return nil, fmt.Errorf("llm: model returned no tool call")
	}

	call := data.Choices[0].Message.ToolCalls[0]
	timer.Done("success")
	return &ToolCallResult{
		Name:      call.Function.Name,
		Arguments: json.RawMessage(call.Function.Arguments),
		Metadata:  map[string]any{"usage": data.Usage},
	}, nil
}

func (c *OpenAIClient) basePayload(req Request) map[string]any {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	for k, v := range req.Parameters {
		payload[k] = v
	}
	return payload
}

func (c *OpenAIClient) post(ctx context.Context, payload map[string]any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("llm: openai payload encode failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("llm: openai request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("llm: openai response read failed: %w", err)
	}
	return respBody, resp.StatusCode, nil
}
