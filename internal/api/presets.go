// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/preset"
	"github.com/ManuGH/chatrelay/internal/provider"
)

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"presets":     preset.Infos(),
		"categories":  preset.Categories(),
		"default_key": preset.Default().Key,
	})
}

type validatePresetRequest struct {
	PresetKey     string                  `json:"preset_key"`
	ModelConfig   *provider.ModelConfig   `json:"model_config"`
	ContextConfig *provider.ContextConfig `json:"context_config"`
}

// handleValidatePreset checks a preset key or an inline configuration
// without creating a session.
func (s *Server) handleValidatePreset(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	var req validatePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body")
		return
	}

	var mc provider.ModelConfig
	var cc provider.ContextConfig
	switch {
	case req.PresetKey != "":
		p, ok := preset.Get(req.PresetKey)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"valid":   false,
				"errors":  []string{"unknown preset: " + req.PresetKey},
			})
			return
		}
		mc = p.ModelConfig
		cc = p.ContextConfig
	case req.ModelConfig != nil:
		mc = *req.ModelConfig
		if req.ContextConfig != nil {
			cc = *req.ContextConfig
		}
	default:
		writeError(w, "preset_key or model_config is required")
		return
	}

	result := provider.ValidateSessionConfig(provider.SessionConfig{
		UserID:        principal.UserID,
		ModelConfig:   mc,
		ContextConfig: cc,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"valid":              result.Valid(),
		"errors":             result.Errors,
		"warnings":           result.Warnings,
		"provider_available": s.convo.ProviderAvailable(mc.Provider),
	})
}

func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	configured := s.convo.Providers()
	available := make(map[string]bool, len(provider.Names()))
	for _, name := range provider.Names() {
		available[name] = s.convo.ProviderAvailable(name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"providers":  available,
		"configured": configured,
	})
}
