// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package llm implements the provider clients for chat completions.
package llm

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// requestTimeout bounds a single completion request.
const requestTimeout = 30 * time.Second

// Message is the provider-neutral chat message format.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Response is the provider-neutral completion result. Success=false carries
// the provider error in Error; transport failures are returned as Go errors
// by the clients instead.
type Response struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
}

// Request is one completion request routed to a provider.
type Request struct {
	Messages     []Message
	Model        string
	Parameters   map[string]any
	SystemPrompt string
}

// Client is a single-provider completion client.
type Client interface {
	// Name returns the provider name ("anthropic", "openai").
	Name() string
	// Complete sends one chat completion request.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// httpDoer lets tests stub the transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// newHTTPClient returns the outbound client for provider calls. Requests
// carry trace context so LLM latency shows up in spans.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   requestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// newProviderLimiter bounds outbound request rate per provider. Providers
// throttle aggressively; staying under 10 req/s avoids 429 storms while
// leaving interactive latency untouched.
func newProviderLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(10), 20)
}

func failure(provider, model, errMsg string, metadata map[string]any) *Response {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Response{
		Metadata: metadata,
		Provider: provider,
		Model:    model,
		Success:  false,
		Error:    errMsg,
	}
}
