// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package preset ships the built-in session configuration presets. Clients
// send a single preset key; the daemon owns every configuration detail.
package preset

import (
	"sort"

	"github.com/ManuGH/chatrelay/internal/provider"
)

// ControlPresetKey names the preset used for the parallel control channel.
const ControlPresetKey = "gpt_control"

// Preset is a complete, named session configuration.
type Preset struct {
	Key           string
	Name          string
	Description   string
	Category      string
	Default       bool
	ModelConfig   provider.ModelConfig
	ContextConfig provider.ContextConfig
}

// Info is the API projection of a preset.
type Info struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsDefault   bool   `json:"is_default"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
}

var presets = []Preset{
	{
		Key:         "claude_balanced",
		Name:        "Claude Balanced",
		Description: "Balanced Claude 3.5 Sonnet for general conversations",
		Category:    "general",
		Default:     true,
		ModelConfig: provider.ModelConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-sonnet-20241022",
			Parameters: map[string]any{
				"max_tokens":  4096,
				"temperature": 0.7,
				"top_p":       1.0,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "general"},
	},
	{
		Key:         "claude_creative",
		Name:        "Claude Creative",
		Description: "More creative Claude 3.5 Sonnet for brainstorming",
		Category:    "creative",
		ModelConfig: provider.ModelConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-sonnet-20241022",
			Parameters: map[string]any{
				"max_tokens":  4096,
				"temperature": 0.9,
				"top_p":       0.95,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "creative"},
	},
	{
		Key:         "claude_coding",
		Name:        "Claude Coding",
		Description: "Claude 3.5 Sonnet optimized for programming tasks",
		Category:    "coding",
		ModelConfig: provider.ModelConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-sonnet-20241022",
			Parameters: map[string]any{
				"max_tokens":  8192,
				"temperature": 0.3,
				"top_p":       1.0,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "coding"},
	},
	{
		Key:         "claude_fast",
		Name:        "Claude Fast",
		Description: "Fast Claude 3.5 Haiku for quick responses",
		Category:    "general",
		ModelConfig: provider.ModelConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-haiku-20241022",
			Parameters: map[string]any{
				"max_tokens":  2048,
				"temperature": 0.7,
				"top_p":       1.0,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "general"},
	},
	{
		Key:         "gpt4_balanced",
		Name:        "GPT-4 Balanced",
		Description: "Balanced GPT-4 for general conversations",
		Category:    "general",
		ModelConfig: provider.ModelConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			Parameters: map[string]any{
				"max_tokens":        4096,
				"temperature":       0.7,
				"top_p":             1.0,
				"frequency_penalty": 0.0,
				"presence_penalty":  0.0,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "general"},
	},
	{
		Key:         "gpt4_creative",
		Name:        "GPT-4 Creative",
		Description: "Creative GPT-4 for writing and brainstorming",
		Category:    "creative",
		ModelConfig: provider.ModelConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			Parameters: map[string]any{
				"max_tokens":        4096,
				"temperature":       0.9,
				"top_p":             0.95,
				"frequency_penalty": 0.1,
				"presence_penalty":  0.1,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "creative"},
	},
	{
		Key:         "gpt4_coding",
		Name:        "GPT-4 Coding",
		Description: "GPT-4 optimized for programming tasks",
		Category:    "coding",
		ModelConfig: provider.ModelConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			Parameters: map[string]any{
				"max_tokens":        8192,
				"temperature":       0.2,
				"top_p":             1.0,
				"frequency_penalty": 0.0,
				"presence_penalty":  0.0,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "coding"},
	},
	{
		Key:         "gpt4_mini",
		Name:        "GPT-4 Mini",
		Description: "Fast and cost-effective GPT-4 mini for simple tasks",
		Category:    "general",
		ModelConfig: provider.ModelConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Parameters: map[string]any{
				"max_tokens":        2048,
				"temperature":       0.7,
				"top_p":             1.0,
				"frequency_penalty": 0.0,
				"presence_penalty":  0.0,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "general"},
	},
	{
		Key:         ControlPresetKey,
		Name:        "GPT Control",
		Description: "Specialized control model for emotes and quick responses",
		Category:    "control",
		ModelConfig: provider.ModelConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			Parameters: map[string]any{
				// Low temperature keeps control output deterministic.
				"max_tokens":        1024,
				"temperature":       0.1,
				"top_p":             1.0,
				"frequency_penalty": 0.0,
				"presence_penalty":  0.0,
			},
		},
		ContextConfig: provider.ContextConfig{ContextID: "control"},
	},
}

// Get returns a preset by key.
func Get(key string) (Preset, bool) {
	for _, p := range presets {
		if p.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}

// All returns every preset.
func All() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// ByCategory returns all presets in the given category.
func ByCategory(category string) []Preset {
	var out []Preset
	for _, p := range presets {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Default returns the default preset.
func Default() Preset {
	for _, p := range presets {
		if p.Default {
			return p
		}
	}
	return presets[0]
}

// Categories returns the sorted, deduplicated category names.
func Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range presets {
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Valid reports whether the key names a known preset.
func Valid(key string) bool {
	_, ok := Get(key)
	return ok
}

// Infos projects every preset for API responses.
func Infos() []Info {
	out := make([]Info, 0, len(presets))
	for _, p := range presets {
		out = append(out, Info{
			Key:         p.Key,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			IsDefault:   p.Default,
			Provider:    p.ModelConfig.Provider,
			Model:       p.ModelConfig.Model,
		})
	}
	return out
}
