// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the relay.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Chat attributes
	ChatSessionIDKey = "chat.session_id"
	ChatUserIDKey    = "chat.user_id"
	ChatRoleKey      = "chat.role"
	ChatCachedKey    = "chat.cached"

	// LLM attributes
	LLMProviderKey     = "llm.provider"
	LLMModelKey        = "llm.model"
	LLMInputTokensKey  = "llm.input_tokens"
	LLMOutputTokensKey = "llm.output_tokens"

	// WebSocket attributes
	WSFrameTypeKey  = "ws.frame_type"
	WSCloseCodeKey  = "ws.close_code"
	WSChunkCountKey = "ws.chunk_count"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ChatAttributes creates chat turn span attributes.
func ChatAttributes(sessionID, userID string, cached bool) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(ChatSessionIDKey, sessionID))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String(ChatUserIDKey, userID))
	}
	attrs = append(attrs, attribute.Bool(ChatCachedKey, cached))
	return attrs
}

// LLMAttributes creates upstream request span attributes.
func LLMAttributes(provider, model string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(LLMProviderKey, provider),
		attribute.String(LLMModelKey, model),
	}
}
