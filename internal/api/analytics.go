// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/log"
)

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	days := queryInt(r, "days", 30)
	if days < 1 || days > 365 {
		days = 30
	}

	summary, err := s.analytics.UserSummary(r.Context(), principal.UserID, days)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).Msg("analytics summary failed")
		writeInternal(w, "failed to compute analytics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"analytics": summary,
	})
}

func (s *Server) handleProviderComparison(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	days := queryInt(r, "days", 30)
	if days < 1 || days > 365 {
		days = 30
	}

	comparison, err := s.analytics.CompareProviders(r.Context(), principal.UserID, days)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).Msg("provider comparison failed")
		writeInternal(w, "failed to compare providers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"comparison": comparison,
	})
}

// handleSessionInsights works on inactive sessions too, so it looks the
// session up regardless of state.
func (s *Server) handleSessionInsights(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.store.SessionAnyState(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sess.UserID != principal.UserID {
		writeForbidden(w)
		return
	}

	insights, err := s.analytics.SessionInsights(r.Context(), sess.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"insights": insights,
	})
}
