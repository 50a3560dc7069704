// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Router dispatches requests to the configured provider clients.
type Router struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRouter builds a router from the configured API keys. Providers without
// a key are simply absent; callers see that via Available.
func NewRouter(anthropicKey, openaiKey string) *Router {
	r := &Router{clients: make(map[string]Client)}
	if c, err := NewAnthropicClient(anthropicKey); err == nil {
		r.clients["anthropic"] = c
	}
	if c, err := NewOpenAIClient(openaiKey); err == nil {
		r.clients["openai"] = c
	}
	return r
}

// Register adds or replaces a provider client. Used by tests to install stubs.
func (r *Router) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Name()] = c
}

// Client returns the client for a provider.
func (r *Router) Client(provider string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[provider]
	if !ok {
		return nil, fmt.Errorf("llm: provider %q not available", provider)
	}
	return c, nil
}

// Complete routes a request to the named provider.
func (r *Router) Complete(ctx context.Context, provider string, req Request) (*Response, error) {
	c, err := r.Client(provider)
	if err != nil {
		return failure(provider, req.Model, err.Error(), nil), nil
	}
	return c.Complete(ctx, req)
}

// ToolCaller returns the OpenAI client if configured. Control orchestration
// requires function calling, which only the OpenAI client implements.
func (r *Router) ToolCaller() (*OpenAIClient, error) {
	c, err := r.Client("openai")
	if err != nil {
		return nil, err
	}
	oc, ok := c.(*OpenAIClient)
	if !ok {
		return nil, fmt.Errorf("llm: openai client does not support tool calls")
	}
	return oc, nil
}

// Available reports whether the provider has a configured client.
func (r *Router) Available(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[provider]
	return ok
}

// Providers lists the configured provider names, sorted.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
