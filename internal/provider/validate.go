// SPDX-License-Identifier: MIT

package provider

// SessionConfig is the combined configuration bound to one chat session.
type SessionConfig struct {
	UserID        string        `json:"user_id"`
	ModelConfig   ModelConfig   `json:"model_config"`
	ContextConfig ContextConfig `json:"context_config"`
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Valid reports whether the configuration may be used.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// ValidateSessionConfig validates the complete session configuration.
func ValidateSessionConfig(sc SessionConfig) ValidationResult {
	var result ValidationResult

	if sc.UserID == "" {
		result.Errors = append(result.Errors, "missing required field: user_id")
	}

	errs, warnings := ValidateModelConfig(sc.ModelConfig)
	result.Errors = append(result.Errors, errs...)
	result.Warnings = append(result.Warnings, warnings...)

	result.Errors = append(result.Errors, ValidateContextConfig(sc.ContextConfig)...)

	return result
}
