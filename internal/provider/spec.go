// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package provider defines the supported LLM providers, their parameter
// schemas, and validation for session configurations.
package provider

import (
	"fmt"
)

// ModelConfig selects a provider, a model and its request parameters.
type ModelConfig struct {
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ParamRange bounds a numeric request parameter.
type ParamRange struct {
	Min float64
	Max float64
}

// Spec describes one LLM provider.
type Spec struct {
	Name            string
	DisplayName     string
	SupportedModels []string
	RequiredParams  []string
	OptionalParams  []string
	ParamDefaults   map[string]any
	ParamRanges     map[string]ParamRange
}

var anthropicSpec = Spec{
	Name:        "anthropic",
	DisplayName: "Anthropic Claude",
	SupportedModels: []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
	},
	RequiredParams: []string{"max_tokens"},
	OptionalParams: []string{"temperature", "top_p", "top_k", "stop_sequences"},
	ParamDefaults: map[string]any{
		"max_tokens":  4096,
		"temperature": 0.7,
		"top_p":       1.0,
		"top_k":       0,
	},
	ParamRanges: map[string]ParamRange{
		"max_tokens":  {Min: 1, Max: 8192},
		"temperature": {Min: 0.0, Max: 1.0},
		"top_p":       {Min: 0.0, Max: 1.0},
		"top_k":       {Min: 0, Max: 40},
	},
}

var openaiSpec = Spec{
	Name:        "openai",
	DisplayName: "OpenAI GPT",
	SupportedModels: []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	},
	RequiredParams: []string{"max_tokens"},
	OptionalParams: []string{"temperature", "top_p", "frequency_penalty", "presence_penalty", "stop"},
	ParamDefaults: map[string]any{
		"max_tokens":        4096,
		"temperature":       0.7,
		"top_p":             1.0,
		"frequency_penalty": 0.0,
		"presence_penalty":  0.0,
	},
	ParamRanges: map[string]ParamRange{
		"max_tokens":        {Min: 1, Max: 32768},
		"temperature":       {Min: 0.0, Max: 2.0},
		"top_p":             {Min: 0.0, Max: 1.0},
		"frequency_penalty": {Min: -2.0, Max: 2.0},
		"presence_penalty":  {Min: -2.0, Max: 2.0},
	},
}

var specs = map[string]*Spec{
	"anthropic": &anthropicSpec,
	"openai":    &openaiSpec,
}

// SpecFor returns the specification for the named provider, or nil.
func SpecFor(name string) *Spec {
	return specs[name]
}

// Names returns the known provider names in stable order.
func Names() []string {
	return []string{"anthropic", "openai"}
}

// ValidateModelConfig checks a model configuration against its provider spec.
// Errors block the configuration; warnings are advisory.
func ValidateModelConfig(mc ModelConfig) (errs, warnings []string) {
	if mc.Provider == "" {
		return []string{"missing required field: provider"}, nil
	}
	if mc.Model == "" {
		errs = append(errs, "missing required field: model")
	}

	spec := SpecFor(mc.Provider)
	if spec == nil {
		errs = append(errs, fmt.Sprintf("unsupported provider: %s", mc.Provider))
		return errs, warnings
	}

	if mc.Model != "" && !contains(spec.SupportedModels, mc.Model) {
		errs = append(errs, fmt.Sprintf("unsupported model %q for provider %q", mc.Model, mc.Provider))
	}

	for _, required := range spec.RequiredParams {
		if _, ok := mc.Parameters[required]; !ok {
			errs = append(errs, fmt.Sprintf("missing required parameter: %s", required))
		}
	}

	for name, value := range mc.Parameters {
		if !contains(spec.RequiredParams, name) && !contains(spec.OptionalParams, name) {
			warnings = append(warnings, fmt.Sprintf("unknown parameter %q for provider %q", name, mc.Provider))
			continue
		}
		r, bounded := spec.ParamRanges[name]
		if !bounded {
			continue
		}
		if num, ok := asFloat(value); ok {
			if num < r.Min {
				errs = append(errs, fmt.Sprintf("parameter %q below minimum: %g", name, r.Min))
			}
			if num > r.Max {
				errs = append(errs, fmt.Sprintf("parameter %q above maximum: %g", name, r.Max))
			}
		}
	}

	return errs, warnings
}

// NormalizeModelConfig fills in provider defaults for missing parameters.
func NormalizeModelConfig(mc ModelConfig) ModelConfig {
	spec := SpecFor(mc.Provider)
	if spec == nil {
		return mc
	}

	normalized := mc
	normalized.Parameters = make(map[string]any, len(mc.Parameters)+len(spec.ParamDefaults))
	for k, v := range mc.Parameters {
		normalized.Parameters[k] = v
	}
	for param, def := range spec.ParamDefaults {
		if _, ok := normalized.Parameters[param]; !ok {
			normalized.Parameters[param] = def
		}
	}
	return normalized
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
