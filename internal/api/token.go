// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuGH/chatrelay/internal/log"
)

type tokenRequest struct {
	UserID string `json:"user_id"`
}

// handleTokenMint issues a bearer token. Real deployments sit behind an
// identity provider; this endpoint exists for development and for clients
// that manage anonymous user IDs themselves.
func (s *Server) handleTokenMint(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body")
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = "anon-" + uuid.NewString()
	}

	token, err := s.signer.Issue(userID, s.cfg.TokenTTL)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).Msg("token mint failed")
		writeInternal(w, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"token":      token,
		"user_id":    userID,
		"expires_in": int(s.cfg.TokenTTL.Seconds()),
	})
}
