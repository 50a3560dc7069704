// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ws serves the streaming chat and analytics WebSocket endpoints.
package ws

import (
	"encoding/json"
	"time"
)

// Close codes sent before dropping an unauthenticated or forbidden socket.
const (
	CloseAuthFailed = 4001
	CloseForbidden  = 4003
)

// Outbound frame types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeMessageReceived       = "message_received"
	TypeUserMessageStored     = "user_message_stored"
	TypeTypingIndicator       = "typing_indicator"
	TypeEmote                 = "emote"
	TypeStreamStart           = "stream_start"
	TypeStreamChunk           = "stream_chunk"
	TypeStreamComplete        = "stream_complete"
	TypeQuickResponses        = "quick_responses"
	TypePong                  = "pong"
	TypeError                 = "error"
	TypeAnalyticsUpdate       = "analytics_update"
	TypeAnalyticsError        = "analytics_error"
)

// Inbound frame types.
const (
	TypeSendMessage      = "send_message"
	TypePing             = "ping"
	TypeRequestAnalytics = "request_analytics"
)

// Error codes carried on error frames.
const (
	CodeInvalidMessageType = "INVALID_MESSAGE_TYPE"
	CodeJSONDecode         = "JSON_DECODE_ERROR"
	CodeEmptyMessage       = "EMPTY_MESSAGE"
	CodeConversationError  = "CONVERSATION_ERROR"
	CodeProcessingError    = "MESSAGE_PROCESSING_ERROR"
)

// Typing indicator states.
const (
	TypingActive = "typing"
	TypingIdle   = "idle"
)

// inbound is the envelope clients send.
type inbound struct {
	Type                  string `json:"type"`
	Message               string `json:"message"`
	RequestEmote          bool   `json:"request_emote"`
	RequestQuickResponses bool   `json:"request_quick_responses"`
}

// frame builds an outbound frame with the shared type and timestamp fields.
// The timestamp is fractional unix seconds, matching what clients already
// parse.
func frame(frameType string, fields map[string]any) []byte {
	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["type"] = frameType
	payload["timestamp"] = float64(time.Now().UnixNano()) / float64(time.Second)

	b, _ := json.Marshal(payload)
	return b
}
