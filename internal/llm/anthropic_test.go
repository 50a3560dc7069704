// SPDX-License-Identifier: MIT

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"golang.org/x/time/rate"
)

// stubDoer returns a canned response and records the outgoing request.
type stubDoer struct {
	status  int
	body    string
	lastReq *http.Request
	lastRaw []byte
	err     error
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	d.lastReq = req
	if req.Body != nil {
		d.lastRaw, _ = io.ReadAll(req.Body)
	}
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(d.body))),
		Header:     make(http.Header),
	}, nil
}

func newTestAnthropic(doer *stubDoer) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  "sk-test",
		baseURL: anthropicBaseURL,
		client:  doer,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestAnthropicCompleteSuccess(t *testing.T) {
	doer := &stubDoer{
		status: http.StatusOK,
		body: `{
			"id": "msg_01",
			"type": "message",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "Hello!"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`,
	}
	c := newTestAnthropic(doer)

	resp, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "Hi"}},
		Model:    "claude-3-5-sonnet-20241022",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("Success = false, error = %q", resp.Error)
	}
	if resp.Content != "Hello!" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello!")
	}
	if resp.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", resp.Provider)
	}
	if resp.Metadata["stop_reason"] != "end_turn" {
		t.Errorf("stop_reason = %v, want end_turn", resp.Metadata["stop_reason"])
	}

	if got := doer.lastReq.Header.Get("x-api-key"); got != "sk-test" {
		t.Errorf("x-api-key = %q, want sk-test", got)
	}
	if got := doer.lastReq.Header.Get("anthropic-version"); got != anthropicAPIVersion {
		t.Errorf("anthropic-version = %q, want %q", got, anthropicAPIVersion)
	}
}

func TestAnthropicSystemPromptPlacement(t *testing.T) {
	doer := &stubDoer{status: http.StatusOK, body: `{"content":[{"type":"text","text":"ok"}]}`}
	c := newTestAnthropic(doer)

	_, err := c.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: "system", Content: "ignored"},
			{Role: "user", Content: "Hi"},
		},
		Model:        "claude-3-5-sonnet-20241022",
		SystemPrompt: "You are terse.",
		Parameters:   map[string]any{"max_tokens": 100},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var payload struct {
		System   string    `json:"system"`
		Messages []Message `json:"messages"`
		MaxTok   int       `json:"max_tokens"`
	}
	if err := json.Unmarshal(doer.lastRaw, &payload); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if payload.System != "You are terse." {
		t.Errorf("system = %q, want top-level prompt", payload.System)
	}
	for _, m := range payload.Messages {
		if m.Role == "system" {
			t.Error("system-role message leaked into messages list")
		}
	}
	if payload.MaxTok != 100 {
		t.Errorf("max_tokens = %d, want 100", payload.MaxTok)
	}
}

func TestAnthropicAPIError(t *testing.T) {
	doer := &stubDoer{
		status: http.StatusTooManyRequests,
		body:   `{"error": {"type": "rate_limit_error", "message": "Too many requests"}}`,
	}
	c := newTestAnthropic(doer)

	resp, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "Hi"}},
		Model:    "claude-3-5-sonnet-20241022",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v, API errors must not be Go errors", err)
	}
	if resp.Success {
		t.Fatal("Success = true for HTTP 429")
	}
	if resp.Error != "Too many requests" {
		t.Errorf("Error = %q, want provider message", resp.Error)
	}
	if resp.Metadata["status_code"] != http.StatusTooManyRequests {
		t.Errorf("status_code = %v, want 429", resp.Metadata["status_code"])
	}
}

func TestNewAnthropicClientRequiresKey(t *testing.T) {
	if _, err := NewAnthropicClient(""); err == nil {
		t.Error("NewAnthropicClient(\"\") error = nil, want error")
	}
}

func TestAPIErrorMessageFallback(t *testing.T) {
	if got := apiErrorMessage([]byte("not json"), 500); got != "HTTP 500" {
		t.Errorf("apiErrorMessage() = %q, want %q", got, "HTTP 500")
	}
}
