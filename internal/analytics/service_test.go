// SPDX-License-Identifier: MIT

package analytics

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/chatrelay/internal/provider"
	"github.com/ManuGH/chatrelay/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedSession(t *testing.T, st *store.Store, userID, providerName, model string) *store.Session {
	t.Helper()
	now := time.Now()
	sess := &store.Session{
		ID:          store.NewSessionID(),
		UserID:      userID,
		Title:       "Test",
		ModelConfig: provider.ModelConfig{Provider: providerName, Model: model},
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	if err := st.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return sess
}

func addMsg(t *testing.T, st *store.Store, sessionID, role, content string, meta map[string]any) {
	t.Helper()
	if _, err := st.AddMessage(context.Background(), sessionID, role, content, meta); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
}

func TestUserSummary(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	ctx := context.Background()

	sess := seedSession(t, st, "user-1", "anthropic", "claude-3-5-sonnet-20241022")
	addMsg(t, st, sess.ID, store.RoleUser, "help me debug this code error", nil)
	addMsg(t, st, sess.ID, store.RoleAssistant, "Sure, show me the function.", nil)
	addMsg(t, st, sess.ID, store.RoleUser, "the variable is undefined in my function", nil)

	summary, err := svc.UserSummary(ctx, "user-1", 7)
	if err != nil {
		t.Fatalf("UserSummary() error = %v", err)
	}

	if summary.Period.Days != 7 {
		t.Errorf("Period.Days = %d, want 7", summary.Period.Days)
	}
	if summary.SessionStats == nil || summary.SessionStats.TotalSessions != 1 {
		t.Errorf("SessionStats = %+v, want one session", summary.SessionStats)
	}
	if summary.MessageStats == nil || summary.MessageStats.TotalMessages != 3 {
		t.Errorf("MessageStats = %+v, want three messages", summary.MessageStats)
	}

	// "debug", "error", "variable", "function", "code" are programming
	// keywords; the topic must surface.
	var topics []string
	for _, topic := range summary.Topics {
		topics = append(topics, topic.Topic)
	}
	if len(topics) == 0 || topics[0] != "programming" {
		t.Errorf("Topics = %v, want programming first", topics)
	}

	if summary.TimePatterns.PeakHour == nil {
		t.Error("PeakHour = nil, want the current hour")
	}
	if summary.TimePatterns.MostActivePeriod == "" {
		t.Error("MostActivePeriod empty, want morning/afternoon/evening/night")
	}
}

func TestUserSummaryEmpty(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)

	summary, err := svc.UserSummary(context.Background(), "nobody", 0)
	if err != nil {
		t.Fatalf("UserSummary() error = %v", err)
	}
	if summary.Period.Days != DefaultWindowDays {
		t.Errorf("Period.Days = %d, want default %d", summary.Period.Days, DefaultWindowDays)
	}
	if len(summary.Topics) != 0 {
		t.Errorf("Topics = %v, want none", summary.Topics)
	}
	if summary.TimePatterns.PeakHour != nil {
		t.Error("PeakHour set without messages")
	}
}

func TestSessionInsights(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	ctx := context.Background()

	sess := seedSession(t, st, "user-1", "anthropic", "claude-3-5-sonnet-20241022")
	addMsg(t, st, sess.ID, store.RoleUser, "Hello! Can you explain goroutines?", nil)
	addMsg(t, st, sess.ID, store.RoleAssistant,
		"Sure.\n\n```go\ngo func() {}()\n```\n\n- lightweight\n- scheduled by the runtime\n\n"+strings.Repeat("Goroutines are cheap. ", 30), nil)
	addMsg(t, st, sess.ID, store.RoleUser, "What about channels?", nil)
	addMsg(t, st, sess.ID, store.RoleAssistant, "Channels connect goroutines.", nil)

	insights, err := svc.SessionInsights(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionInsights() error = %v", err)
	}

	ma := insights.MessageAnalysis
	if ma.TotalMessages != 4 || ma.UserMessages != 2 || ma.AssistantMessages != 2 {
		t.Errorf("MessageAnalysis = %+v, want 4/2/2", ma)
	}
	if ma.AvgUserLength <= 0 || ma.AvgAssistantLength <= 0 {
		t.Errorf("averages = %v/%v, want positive", ma.AvgUserLength, ma.AvgAssistantLength)
	}
	if len(ma.ConversationPhases) == 0 {
		t.Error("ConversationPhases empty")
	}

	if insights.FlowAnalysis.QuestionAnswerPairs < 2 {
		t.Errorf("QuestionAnswerPairs = %d, want >= 2", insights.FlowAnalysis.QuestionAnswerPairs)
	}
	if insights.QualityMetrics.CodeExamples != 1 {
		t.Errorf("CodeExamples = %d, want 1", insights.QualityMetrics.CodeExamples)
	}
	if insights.QualityMetrics.StructuredResponses < 1 {
		t.Errorf("StructuredResponses = %d, want >= 1", insights.QualityMetrics.StructuredResponses)
	}
}

func TestSessionInsightsUnknownSession(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	if _, err := svc.SessionInsights(context.Background(), "missing"); err == nil {
		t.Error("SessionInsights() error = nil, want not-found")
	}
}

func TestCompareProviders(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st)
	ctx := context.Background()

	a := seedSession(t, st, "user-1", "anthropic", "claude-3-5-sonnet-20241022")
	addMsg(t, st, a.ID, store.RoleUser, "hi", nil)
	addMsg(t, st, a.ID, store.RoleAssistant, "hello", map[string]any{
		"llm_metadata": map[string]any{"usage": map[string]any{"total_tokens": float64(30)}},
	})

	o := seedSession(t, st, "user-1", "openai", "gpt-4o")
	addMsg(t, st, o.ID, store.RoleUser, "hey", nil)
	addMsg(t, st, o.ID, store.RoleAssistant, "hi there", map[string]any{
		"llm_metadata": map[string]any{"usage": map[string]any{"total_tokens": float64(12)}},
	})

	cmp, err := svc.CompareProviders(ctx, "user-1", 7)
	if err != nil {
		t.Fatalf("CompareProviders() error = %v", err)
	}

	anth := cmp.Providers["anthropic"]
	if anth == nil || anth.Sessions != 1 || anth.TotalTokens != 30 {
		t.Errorf("anthropic stats = %+v, want 1 session / 30 tokens", anth)
	}
	oai := cmp.Providers["openai"]
	if oai == nil || oai.TotalTokens != 12 {
		t.Errorf("openai stats = %+v, want 12 tokens", oai)
	}
	if len(anth.Models) != 1 || anth.Models[0] != "claude-3-5-sonnet-20241022" {
		t.Errorf("Models = %v, want the session model", anth.Models)
	}
	if anth.AvgTokensPerMessage != 15.0 {
		t.Errorf("AvgTokensPerMessage = %v, want 15 (30 tokens / 2 messages)", anth.AvgTokensPerMessage)
	}
}

func TestDetectPhases(t *testing.T) {
	msgs := func(n int, content string) []store.Message {
		out := make([]store.Message, n)
		for i := range out {
			out[i] = store.Message{Role: store.RoleUser, Content: content}
		}
		return out
	}

	tests := []struct {
		name string
		in   []store.Message
		want string
	}{
		{"short", msgs(2, "hi"), "initial_greeting"},
		{"medium", msgs(5, "hello"), "exploration"},
		{"deep", msgs(9, "hello"), "deep_discussion"},
		{"long", msgs(15, "hello"), "extended_conversation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phases := detectPhases(tt.in)
			found := false
			for _, p := range phases {
				if p == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("detectPhases() = %v, want %q", phases, tt.want)
			}
		})
	}

	t.Run("gratitude", func(t *testing.T) {
		phases := detectPhases([]store.Message{{Role: store.RoleUser, Content: "thanks a lot!"}})
		found := false
		for _, p := range phases {
			if p == "gratitude_expressed" {
				found = true
			}
		}
		if !found {
			t.Errorf("detectPhases() = %v, want gratitude_expressed", phases)
		}
	})
}
