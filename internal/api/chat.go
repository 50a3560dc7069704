// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/conversation"
	"github.com/ManuGH/chatrelay/internal/log"
)

type sendMessageRequest struct {
	SessionID            string `json:"session_id"`
	Message              string `json:"message"`
	RequestEmote         bool   `json:"request_emote"`
	RequestQuickResponse bool   `json:"request_quick_responses"`
}

// handleChatSend runs one full conversation turn without streaming. The
// WebSocket endpoints share the same underlying service.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, "message must not be empty")
		return
	}

	result, err := s.convo.Send(r.Context(), conversation.SendRequest{
		SessionID:   req.SessionID,
		UserID:      principal.UserID,
		Message:     req.Message,
		WantEmote:   req.RequestEmote,
		WantReplies: req.RequestQuickResponse,
	})
	if err != nil {
		if errors.Is(err, conversation.ErrAccessDenied) {
			writeForbidden(w)
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).Str(log.FieldSessionID, req.SessionID).Msg("send failed")
		writeStoreError(w, err)
		return
	}

	// Activity slides the session expiry.
	if err := s.store.ExtendTTL(r.Context(), req.SessionID, s.cfg.SessionTTL); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).Str(log.FieldSessionID, req.SessionID).Msg("ttl extend failed")
	}

	payload := map[string]any{
		"success":           true,
		"session_id":        result.SessionID,
		"user_message":      conversation.FormatMessage(result.UserMessage),
		"assistant_message": conversation.FormatMessage(result.AssistantMessage),
		"usage_stats":       conversation.ExtractUsageStats(result),
		"processing_info":   result.ProcessingInfo,
	}
	if result.ControlData != nil {
		payload["control_data"] = result.ControlData
	}
	if len(result.Warnings) > 0 {
		payload["warnings"] = result.Warnings
	}
	writeJSON(w, http.StatusOK, payload)
}
