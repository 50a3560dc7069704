// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"
)

// ValidationError carries every field-scoped problem found in one pass so the
// operator can fix them all at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the resolved configuration for operator mistakes.
func (c *Config) Validate() error {
	var problems []string

	if c.Listen == "" {
		problems = append(problems, "listen address must not be empty")
	}
	if c.DataDir == "" {
		problems = append(problems, "dataDir must not be empty")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "tokenTTL must be positive")
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "sessionTTL must be positive")
	}
	if c.WebSocketTimeout <= 0 {
		problems = append(problems, "webSocketTimeout must be positive")
	}
	if c.StreamChunkSize <= 0 {
		problems = append(problems, "streamChunkSize must be positive")
	}
	if c.StreamChunkDelay < 0 {
		problems = append(problems, "streamChunkDelay must not be negative")
	}
	if c.RateLimitEnabled && c.RateLimitRPM <= 0 {
		problems = append(problems, "rateLimitRPM must be positive when rate limiting is enabled")
	}
	if c.OTELEnabled {
		switch c.OTELExporter {
		case "grpc", "http":
		default:
			problems = append(problems, fmt.Sprintf("otelExporter %q is not supported (grpc, http)", c.OTELExporter))
		}
		if c.OTELEndpoint == "" {
			problems = append(problems, "otelEndpoint must be set when tracing is enabled")
		}
		if c.OTELSamplingRate < 0 || c.OTELSamplingRate > 1 {
			problems = append(problems, "otelSamplingRate must be in [0, 1]")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
