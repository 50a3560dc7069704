// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package pipeline

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	blockedRe    = regexp.MustCompile(`(?i)\b(spam|test123)\b`)
)

// contentFilter normalizes whitespace and masks blocked terms.
type contentFilter struct{}

func (contentFilter) name() string { return "content_filter" }

func (contentFilter) process(content string, _ Context) *Result {
	filtered := strings.TrimSpace(content)
	filtered = whitespaceRe.ReplaceAllString(filtered, " ")
	filtered = blockedRe.ReplaceAllString(filtered, "[filtered]")

	r := newResult(filtered)
	r.Enhancements["filtered"] = filtered != content
	if filtered != content {
		r.Notes = append(r.Notes, "content filtered")
	}
	return r
}

// contextEnricher attaches temporal and conversation-length context.
type contextEnricher struct{}

func (contextEnricher) name() string { return "context_enricher" }

func (contextEnricher) process(content string, pc Context) *Result {
	r := newResult(content)
	if len(pc.History) > 0 {
		r.StructuredData["conversation_length"] = len(pc.History)
	}

	now := time.Now()
	r.StructuredData["timestamp"] = now.Format(time.RFC3339)
	r.StructuredData["time_context"] = map[string]any{
		"hour":        now.Hour(),
		"day_of_week": int(now.Weekday()),
		"is_weekend":  now.Weekday() == time.Saturday || now.Weekday() == time.Sunday,
	}
	r.Enhancements["context_added"] = true
	return r
}

// personalizer prepends tone instructions from user preferences.
type personalizer struct{}

func (personalizer) name() string { return "personalizer" }

func (personalizer) process(content string, pc Context) *Result {
	r := newResult(content)
	switch pc.Preferences.Tone {
	case "formal":
		r.Content = "Please respond in a formal tone. " + content
		r.Enhancements["tone_instruction"] = "formal"
	case "casual":
		r.Content = "Please respond in a casual, friendly tone. " + content
		r.Enhancements["tone_instruction"] = "casual"
	}
	r.StructuredData["user_preferences_applied"] = pc.Preferences
	return r
}

// formatter ensures sentence capitalization and terminal punctuation.
type formatter struct{}

func (formatter) name() string { return "formatter" }

func (formatter) process(content string, _ Context) *Result {
	formatted := content
	if formatted != "" && !strings.ContainsAny(string(formatted[len(formatted)-1]), ".!?") {
		formatted += "."
	}
	if formatted != "" {
		runes := []rune(formatted)
		if unicode.IsLower(runes[0]) {
			runes[0] = unicode.ToUpper(runes[0])
			formatted = string(runes)
		}
	}

	r := newResult(formatted)
	r.Enhancements["formatted"] = formatted != content
	return r
}
