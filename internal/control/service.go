// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package control generates per-turn control signals (emotes and quick reply
// suggestions) through a parallel tool-calling request. Control failures are
// reported as warnings; they never fail the chat turn.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuGH/chatrelay/internal/llm"
	"github.com/ManuGH/chatrelay/internal/log"
	"github.com/ManuGH/chatrelay/internal/metrics"
	"github.com/ManuGH/chatrelay/internal/preset"
	"github.com/ManuGH/chatrelay/internal/provider"
	"github.com/ManuGH/chatrelay/internal/store"
)

const toolName = "chat_orchestrator"

// emoteGlyphs maps emote names to their display glyphs.
var emoteGlyphs = map[string]string{
	"joy":       "😄",
	"sad":       "😢",
	"angry":     "😠",
	"thinking":  "🤔",
	"neutral":   "🙂",
	"surprised": "😲",
	"confused":  "😕",
	"excited":   "🎉",
}

var emoteNames = []string{"joy", "sad", "angry", "thinking", "neutral", "surprised", "confused", "excited"}

// Data is the control output for one chat turn.
type Data struct {
	Emote        string   `json:"emote,omitempty"`
	EmoteGlyph   string   `json:"emote_glyph,omitempty"`
	QuickReplies []string `json:"quick_replies"`
}

// Request selects which control features the client asked for.
type Request struct {
	UserMessage   string
	Context       []store.Message
	SessionConfig provider.SessionConfig
	WantEmote     bool
	WantReplies   bool
}

// Glyph returns the display glyph for an emote name.
func Glyph(emote string) string { return emoteGlyphs[emote] }

// Service runs control requests against the router's tool-calling provider.
type Service struct {
	router *llm.Router
}

// NewService creates a control service over the given router.
func NewService(router *llm.Router) *Service {
	return &Service{router: router}
}

// Generate produces control data for one turn. Custom control instructions
// short-circuit the LLM call when only quick replies are requested. The
// returned warnings carry any upstream problems; Data is nil only when the
// control request could not be served at all.
func (s *Service) Generate(ctx context.Context, req Request) (*Data, []string) {
	if !req.WantEmote && !req.WantReplies {
		return &Data{QuickReplies: []string{}}, nil
	}

	custom := provider.EffectiveControlInstructions(req.SessionConfig.ContextConfig)
	if len(custom) > 0 && req.WantReplies && !req.WantEmote {
		return &Data{QuickReplies: custom}, nil
	}

	p, ok := preset.Get(preset.ControlPresetKey)
	if !ok {
		metrics.ControlCallsTotal.WithLabelValues("preset_missing").Inc()
		return nil, []string{"control preset not found"}
	}
	caller, err := s.router.ToolCaller()
	if err != nil {
		metrics.ControlCallsTotal.WithLabelValues("unavailable").Inc()
		return nil, []string{"openai provider not available for control requests"}
	}

	minItems, maxItems := provider.QuickInputBounds(req.SessionConfig.ContextConfig)

	result, err := caller.ToolCall(ctx, llm.Request{
		Messages:     s.buildMessages(req),
		Model:        p.ModelConfig.Model,
		Parameters:   p.ModelConfig.Parameters,
		SystemPrompt: "",
	}, orchestratorTool(minItems, maxItems))
	if err != nil {
		metrics.ControlCallsTotal.WithLabelValues("error").Inc()
		logger := log.FromContext(ctx)
		logger.Warn().Err(err).Str(log.FieldComponent, "control").Msg("control request failed")
		return nil, []string{fmt.Sprintf("control request failed: %v", err)}
	}

	metrics.ControlCallsTotal.WithLabelValues("success").Inc()
	return s.parseResult(result, req, custom), nil
}

func (s *Service) buildMessages(req Request) []llm.Message {
	instructions := "Generate appropriate emotes and quick reply suggestions based on the conversation context."
	if custom := req.SessionConfig.ContextConfig.QuickInputInstructions; custom != "" {
		instructions = custom
	}

	// Last three exchanges are enough context for control signals.
	tail := req.Context
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	contextStr := "No prior context"
	if len(tail) > 0 {
		lines := make([]string, 0, len(tail))
		for _, m := range tail {
			lines = append(lines, m.Role+": "+m.Content)
		}
		contextStr = strings.Join(lines, "\n")
	}

	return []llm.Message{
		{Role: "system", Content: "You produce ONLY a function call that follows the schema exactly. " + instructions},
		{Role: "system", Content: "CONVERSATION CONTEXT:\n" + contextStr},
		{Role: "user", Content: req.UserMessage},
	}
}

func (s *Service) parseResult(result *llm.ToolCallResult, req Request, custom []string) *Data {
	var args struct {
		Emote        string   `json:"emote"`
		QuickReplies []string `json:"quick_replies"`
	}
	if result.Name == toolName {
		// Malformed arguments leave args zero-valued; fallbacks apply below.
		_ = json.Unmarshal(result.Arguments, &args)
	}

	data := &Data{QuickReplies: []string{}}

	if req.WantEmote {
		emote := args.Emote
		if _, ok := emoteGlyphs[emote]; !ok {
			emote = "neutral"
		}
		data.Emote = emote
		data.EmoteGlyph = emoteGlyphs[emote]
	}

	if req.WantReplies {
		if len(custom) > 0 {
			data.QuickReplies = custom
		} else {
			for _, reply := range args.QuickReplies {
				if len(data.QuickReplies) == provider.QuickInputMaxItems {
					break
				}
				if n := len(reply); n >= 1 && n <= provider.MaxControlInstructionLen {
					data.QuickReplies = append(data.QuickReplies, reply)
				}
			}
		}
	}

	return data
}

// orchestratorTool builds the strict tool schema with the session's quick
// reply bounds baked in.
func orchestratorTool(minItems, maxItems int) llm.Tool {
	return llm.Tool{
		Name:        toolName,
		Description: "Return control signals for a chat turn.",
		Strict:      true,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"emote": map[string]any{
					"type": "string",
					"enum": emoteNames,
				},
				"quick_replies": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string", "minLength": 1, "maxLength": provider.MaxControlInstructionLen},
					"minItems": minItems,
					"maxItems": maxItems,
				},
			},
			"additionalProperties": false,
			"required":             []string{"emote", "quick_replies"},
		},
	}
}
