// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on noop provider error = %v", err)
	}
	// The global tracer still hands out usable (noop) tracers.
	_, span := Tracer("test").Start(context.Background(), "op")
	span.End()
}

func TestNewProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "chatrelay",
		ExporterType: "kafka",
		Endpoint:     "localhost:4317",
	})
	if err == nil {
		t.Fatal("expected error for unsupported exporter type")
	}
}

func TestChatAttributes(t *testing.T) {
	attrs := ChatAttributes("chat_session_1", "user-1", true)
	if len(attrs) != 3 {
		t.Fatalf("attrs = %d, want 3", len(attrs))
	}

	// Empty identity fields are omitted, the cached flag always present.
	attrs = ChatAttributes("", "", false)
	if len(attrs) != 1 {
		t.Fatalf("attrs without identity = %d, want 1", len(attrs))
	}
	if string(attrs[0].Key) != ChatCachedKey {
		t.Errorf("key = %s, want %s", attrs[0].Key, ChatCachedKey)
	}
}

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/api/chat/sessions", 200)
	if len(attrs) != 3 {
		t.Fatalf("attrs = %d, want 3", len(attrs))
	}
	for _, a := range attrs {
		if a.Key == HTTPStatusCodeKey && a.Value.AsInt64() != 200 {
			t.Errorf("status attribute = %d, want 200", a.Value.AsInt64())
		}
	}
}
