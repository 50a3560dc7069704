// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/log"
	"github.com/ManuGH/chatrelay/internal/metrics"
	"github.com/ManuGH/chatrelay/internal/preset"
	"github.com/ManuGH/chatrelay/internal/provider"
	"github.com/ManuGH/chatrelay/internal/store"
)

type createSessionRequest struct {
	PresetKey     string                  `json:"preset_key"`
	Title         string                  `json:"title"`
	ModelConfig   *provider.ModelConfig   `json:"model_config"`
	ContextConfig *provider.ContextConfig `json:"context_config"`
}

type updateSessionRequest struct {
	PresetKey     string                  `json:"preset_key"`
	Title         string                  `json:"title"`
	ModelConfig   *provider.ModelConfig   `json:"model_config"`
	ContextConfig *provider.ContextConfig `json:"context_config"`
}

// sessionPayload is the JSON projection of a session.
func sessionPayload(sess *store.Session) map[string]any {
	return map[string]any{
		"session_id":     sess.ID,
		"user_id":        sess.UserID,
		"title":          sess.Title,
		"model_config":   sess.ModelConfig,
		"context_config": sess.ContextConfig,
		"is_active":      sess.Active,
		"message_count":  sess.MessageCount,
		"created_at":     sess.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":     sess.UpdatedAt.UTC().Format(time.RFC3339),
		"expires_at":     sess.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body")
		return
	}

	p := preset.Default()
	if req.PresetKey != "" {
		found, ok := preset.Get(req.PresetKey)
		if !ok {
			writeError(w, "unknown preset: "+req.PresetKey)
			return
		}
		p = found
	}

	mc := p.ModelConfig
	cc := p.ContextConfig
	if req.ModelConfig != nil {
		mc = *req.ModelConfig
	}
	if req.ContextConfig != nil {
		cc = *req.ContextConfig
	}

	result := provider.ValidateSessionConfig(provider.SessionConfig{
		UserID:        principal.UserID,
		ModelConfig:   mc,
		ContextConfig: cc,
	})
	if !result.Valid() {
		writeErrors(w, "invalid session configuration", result.Errors)
		return
	}

	now := time.Now()
	sess := &store.Session{
		ID:            store.NewSessionID(),
		UserID:        principal.UserID,
		Title:         req.Title,
		ModelConfig:   provider.NormalizeModelConfig(mc),
		ContextConfig: cc,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.SessionTTL),
	}
	if err := s.store.CreateSession(r.Context(), sess); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).Msg("create session failed")
		writeInternal(w, "failed to create session")
		return
	}
	metrics.SessionsCreated.Inc()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"session_id": sess.ID,
		"session":    sessionPayload(sess),
		"warnings":   result.Warnings,
	})
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	activeOnly := r.URL.Query().Get("active_only") != "false"

	sessions, err := s.store.SessionsForUser(r.Context(), principal.UserID, activeOnly)
	if err != nil {
		writeInternal(w, "failed to list sessions")
		return
	}

	payload := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		payload = append(payload, sessionPayload(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"sessions": payload,
		"count":    len(payload),
	})
}

// loadOwnedSession fetches a session and enforces ownership. It writes the
// error response itself and returns nil when the caller should stop.
func (s *Server) loadOwnedSession(w http.ResponseWriter, r *http.Request) *store.Session {
	principal := auth.PrincipalFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.store.Session(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return nil
	}
	if sess.UserID != principal.UserID {
		writeForbidden(w)
		return nil
	}
	return sess
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sess := s.loadOwnedSession(w, r)
	if sess == nil {
		return
	}
	count, err := s.store.MessageCount(r.Context(), sess.ID)
	if err == nil {
		sess.MessageCount = count
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": sessionPayload(sess),
	})
}

func (s *Server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	sess := s.loadOwnedSession(w, r)
	if sess == nil {
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body")
		return
	}

	mc := sess.ModelConfig
	cc := sess.ContextConfig
	if req.PresetKey != "" {
		p, ok := preset.Get(req.PresetKey)
		if !ok {
			writeError(w, "unknown preset: "+req.PresetKey)
			return
		}
		mc = p.ModelConfig
		cc = p.ContextConfig
	}
	if req.ModelConfig != nil {
		mc = *req.ModelConfig
	}
	if req.ContextConfig != nil {
		cc = *req.ContextConfig
	}
	title := sess.Title
	if req.Title != "" {
		title = req.Title
	}

	result := provider.ValidateSessionConfig(provider.SessionConfig{
		UserID:        sess.UserID,
		ModelConfig:   mc,
		ContextConfig: cc,
	})
	if !result.Valid() {
		writeErrors(w, "invalid session configuration", result.Errors)
		return
	}

	mc = provider.NormalizeModelConfig(mc)
	if err := s.store.UpdateSessionConfig(r.Context(), sess.ID, mc, cc, title); err != nil {
		writeStoreError(w, err)
		return
	}

	sess.ModelConfig = mc
	sess.ContextConfig = cc
	sess.Title = title
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"session":  sessionPayload(sess),
		"warnings": result.Warnings,
	})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sess := s.loadOwnedSession(w, r)
	if sess == nil {
		return
	}
	if err := s.store.Deactivate(r.Context(), sess.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sess.ID,
		"message":    "session deactivated",
	})
}

func (s *Server) handleMessageHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.loadOwnedSession(w, r)
	if sess == nil {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	history, err := s.store.MessageHistory(r.Context(), sess.ID, limit, offset)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"session_id":  history.SessionID,
		"messages":    history.Messages,
		"total_count": history.TotalCount,
		"has_more":    history.HasMore,
		"offset":      history.Offset,
		"limit":       history.Limit,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
