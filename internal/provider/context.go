// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package provider

import (
	"fmt"
	"strings"
)

// Quick-input list bounds. Control responses are clamped to this window.
const (
	QuickInputMinItems = 2
	QuickInputMaxItems = 5
	// MaxControlInstructionLen bounds a single custom control instruction.
	MaxControlInstructionLen = 40
)

// ContextConfig selects the system prompt and control behavior of a session.
// Either ContextID (a built-in prompt) or CustomSystemPrompt is set; a custom
// prompt takes precedence when both are present.
type ContextConfig struct {
	ContextID          string   `json:"context_id,omitempty"`
	CustomSystemPrompt string   `json:"custom_system_prompt,omitempty"`
	ControlInstr       []string `json:"custom_control_instructions,omitempty"`

	QuickInputInstructions string `json:"quick_input_generation_instructions,omitempty"`
	QuickInputMin          int    `json:"quick_input_min_items,omitempty"`
	QuickInputMax          int    `json:"quick_input_max_items,omitempty"`
}

// PromptContext is a built-in system prompt.
type PromptContext struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	Description  string `json:"description"`
}

var promptContexts = map[string]PromptContext{
	"general": {
		Name:         "General Assistant",
		SystemPrompt: "You are a helpful, harmless, and honest AI assistant.",
		Description:  "General purpose conversational AI",
	},
	"coding": {
		Name:         "Coding Assistant",
		SystemPrompt: "You are an expert programmer and coding assistant. Help with code review, debugging, and implementation.",
		Description:  "Specialized for programming tasks",
	},
	"creative": {
		Name:         "Creative Assistant",
		SystemPrompt: "You are a creative writing assistant. Help with storytelling, brainstorming, and creative projects.",
		Description:  "Focused on creative tasks",
	},
	"control": {
		Name:         "Control Channel",
		SystemPrompt: "You produce ONLY a function call that follows the schema exactly.",
		Description:  "Structured control output for emotes and quick replies",
	},
}

// Context returns a built-in prompt context by ID.
func Context(id string) (PromptContext, bool) {
	pc, ok := promptContexts[id]
	return pc, ok
}

// Contexts returns all built-in prompt contexts.
func Contexts() map[string]PromptContext {
	out := make(map[string]PromptContext, len(promptContexts))
	for k, v := range promptContexts {
		out[k] = v
	}
	return out
}

// ValidateContextConfig returns configuration errors, if any.
func ValidateContextConfig(cc ContextConfig) []string {
	var errs []string

	if cc.ContextID == "" && cc.CustomSystemPrompt == "" {
		return []string{"must provide either context_id or custom_system_prompt"}
	}

	if cc.CustomSystemPrompt != "" {
		if strings.TrimSpace(cc.CustomSystemPrompt) == "" {
			errs = append(errs, "custom_system_prompt must be a non-empty string")
		}
	} else if _, ok := promptContexts[cc.ContextID]; !ok {
		errs = append(errs, fmt.Sprintf("unknown context_id: %s", cc.ContextID))
	}

	for i, instr := range cc.ControlInstr {
		switch {
		case strings.TrimSpace(instr) == "":
			errs = append(errs, fmt.Sprintf("custom_control_instructions[%d] cannot be empty", i))
		case len(instr) > MaxControlInstructionLen:
			errs = append(errs, fmt.Sprintf("custom_control_instructions[%d] cannot exceed %d characters", i, MaxControlInstructionLen))
		}
	}

	return errs
}

// EffectiveSystemPrompt resolves the system prompt for a session: a custom
// prompt wins, then the selected built-in, then the general fallback.
func EffectiveSystemPrompt(cc ContextConfig) string {
	if cc.CustomSystemPrompt != "" {
		return cc.CustomSystemPrompt
	}
	id := cc.ContextID
	if id == "" {
		id = "general"
	}
	if pc, ok := promptContexts[id]; ok {
		return pc.SystemPrompt
	}
	return promptContexts["general"].SystemPrompt
}

// EffectiveControlInstructions returns the custom control instructions, or
// nil to use service defaults.
func EffectiveControlInstructions(cc ContextConfig) []string {
	if len(cc.ControlInstr) > 0 {
		return cc.ControlInstr
	}
	return nil
}

// QuickInputBounds resolves the clamped min/max quick-reply counts.
func QuickInputBounds(cc ContextConfig) (min, max int) {
	min = cc.QuickInputMin
	if min == 0 {
		min = QuickInputMinItems
	}
	max = cc.QuickInputMax
	if max == 0 {
		max = QuickInputMaxItems
	}
	min = clamp(min, QuickInputMinItems, QuickInputMaxItems)
	max = clamp(max, min, QuickInputMaxItems)
	return min, max
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
