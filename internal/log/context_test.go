// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextIdentityRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
	}{
		{"nil context", nil, "req-123"},
		{"background context", context.Background(), "req-456"},
		{"empty id", context.Background(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.id)
			if got := RequestIDFromContext(ctx); got != tt.id {
				t.Errorf("RequestIDFromContext() = %q, want %q", got, tt.id)
			}
		})
	}

	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("unset request id = %q, want empty", got)
	}
	if got := SessionIDFromContext(nil); got != "" {
		t.Errorf("nil context session id = %q, want empty", got)
	}
}

func TestFromContextAnnotations(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "test"})
	t.Cleanup(func() { Configure(Config{}) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "chat_session_abc")
	ctx = ContextWithUserID(ctx, "user-1")

	logger := FromContext(ctx)
	logger.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("request id field = %v", entry[FieldRequestID])
	}
	if entry[FieldSessionID] != "chat_session_abc" {
		t.Errorf("session id field = %v", entry[FieldSessionID])
	}
	if entry[FieldUserID] != "user-1" {
		t.Errorf("user id field = %v", entry[FieldUserID])
	}
	if entry["service"] != "test" {
		t.Errorf("service field = %v", entry["service"])
	}
}

func TestWithComponentFromContext(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	logger := WithComponentFromContext(context.Background(), "ws")
	logger.Info().Msg("up")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry[FieldComponent] != "ws" {
		t.Errorf("component field = %v", entry[FieldComponent])
	}
}
