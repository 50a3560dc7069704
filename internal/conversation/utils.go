// SPDX-License-Identifier: MIT

package conversation

import (
	"github.com/ManuGH/chatrelay/internal/preset"
	"github.com/ManuGH/chatrelay/internal/provider"
	"github.com/ManuGH/chatrelay/internal/store"
)

// presetKeyFor maps a model configuration back to a known preset key, for
// cache keying. Sessions with ad-hoc configurations get an empty key.
func presetKeyFor(mc provider.ModelConfig) string {
	for _, p := range preset.All() {
		if p.ModelConfig.Provider == mc.Provider && p.ModelConfig.Model == mc.Model {
			return p.Key
		}
	}
	return ""
}

// UsageStats summarizes token usage of one turn.
type UsageStats struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TotalTokens  int    `json:"total_tokens"`
}

// ExtractUsageStats reads token counts from the assistant message metadata.
// Anthropic reports input/output_tokens, OpenAI prompt/completion_tokens.
func ExtractUsageStats(result *SendResult) UsageStats {
	var stats UsageStats
	if result == nil || result.AssistantMessage == nil {
		return stats
	}

	meta := result.AssistantMessage.Metadata
	stats.Provider, _ = meta["provider"].(string)
	stats.Model, _ = meta["model"].(string)

	llmMeta, _ := meta["llm_metadata"].(map[string]any)
	usage, _ := llmMeta["usage"].(map[string]any)

	stats.InputTokens = intFromUsage(usage, "input_tokens", "prompt_tokens")
	stats.OutputTokens = intFromUsage(usage, "output_tokens", "completion_tokens")
	stats.TotalTokens = intFromUsage(usage, "total_tokens")
	if stats.TotalTokens == 0 {
		stats.TotalTokens = stats.InputTokens + stats.OutputTokens
	}
	return stats
}

// intFromUsage reads the first present key. Values arrive as float64 after
// JSON round-trips and as int when set natively.
func intFromUsage(usage map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := usage[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

// FormatMessage projects a stored message into the wire shape clients render.
func FormatMessage(m *store.Message) map[string]any {
	if m == nil {
		return nil
	}
	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"id":        m.ID,
		"role":      m.Role,
		"content":   m.Content,
		"timestamp": m.CreatedAt,
		"metadata":  meta,
	}
}
