// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"reflect"
	"testing"
)

type stubClient struct {
	name string
	resp *Response
	err  error
}

func (c *stubClient) Name() string { return c.name }

func (c *stubClient) Complete(_ context.Context, req Request) (*Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.resp != nil {
		return c.resp, nil
	}
	return &Response{Content: "stub", Provider: c.name, Model: req.Model, Success: true}, nil
}

func TestRouterProviders(t *testing.T) {
	r := NewRouter("", "")
	if got := r.Providers(); len(got) != 0 {
		t.Errorf("Providers() = %v, want none without keys", got)
	}

	r.Register(&stubClient{name: "openai"})
	r.Register(&stubClient{name: "anthropic"})
	want := []string{"anthropic", "openai"}
	if got := r.Providers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Providers() = %v, want %v (sorted)", got, want)
	}
	if !r.Available("openai") || r.Available("cohere") {
		t.Error("Available() misreports registered providers")
	}
}

func TestRouterCompleteUnknownProvider(t *testing.T) {
	r := NewRouter("", "")
	resp, err := r.Complete(context.Background(), "cohere", Request{Model: "command"})
	if err != nil {
		t.Fatalf("Complete() error = %v, unknown providers must not be Go errors", err)
	}
	if resp.Success {
		t.Error("Success = true for unknown provider")
	}
	if resp.Error == "" {
		t.Error("Error is empty, want explanation")
	}
}

func TestRouterCompleteRoutes(t *testing.T) {
	r := NewRouter("", "")
	r.Register(&stubClient{name: "anthropic", resp: &Response{Content: "routed", Success: true}})

	resp, err := r.Complete(context.Background(), "anthropic", Request{Model: "claude"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "routed" {
		t.Errorf("Content = %q, want routed", resp.Content)
	}
}

func TestRouterToolCallerRequiresOpenAI(t *testing.T) {
	r := NewRouter("", "")
	if _, err := r.ToolCaller(); err == nil {
		t.Error("ToolCaller() error = nil without openai, want error")
	}

	r2 := NewRouter("", "sk-test")
	if _, err := r2.ToolCaller(); err != nil {
		t.Errorf("ToolCaller() error = %v with openai key", err)
	}
}
