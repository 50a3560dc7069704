// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/chatrelay/internal/provider"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestSession(userID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:     NewSessionID(),
		UserID: userID,
		Title:  "Test Chat",
		ModelConfig: provider.ModelConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-sonnet-20241022",
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := s.Session(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "user-1")
	}
	if got.ModelConfig.Provider != "anthropic" {
		t.Errorf("Provider = %q, want %q", got.ModelConfig.Provider, "anthropic")
	}
	if !got.Active {
		t.Error("Active = false, want true")
	}
}

func TestSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Session(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Session() error = %v, want ErrNotFound", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", -time.Minute)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if _, err := s.Session(ctx, sess.ID); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Session() error = %v, want ErrSessionExpired", err)
	}

	// The expired lookup deactivates; a second lookup misses entirely.
	if _, err := s.Session(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Session() error = %v, want ErrNotFound", err)
	}

	// Still visible through the any-state lookup.
	got, err := s.SessionAnyState(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionAnyState() error = %v", err)
	}
	if got.Active {
		t.Error("Active = true after expiry, want false")
	}
}

func TestUpdateSessionConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	mc := provider.ModelConfig{Provider: "openai", Model: "gpt-4o"}
	cc := provider.ContextConfig{ContextID: "coding"}
	if err := s.UpdateSessionConfig(ctx, sess.ID, mc, cc, "Renamed"); err != nil {
		t.Fatalf("UpdateSessionConfig() error = %v", err)
	}

	got, err := s.Session(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ModelConfig.Provider != "openai" || got.Title != "Renamed" {
		t.Errorf("got provider=%q title=%q, want openai/Renamed", got.ModelConfig.Provider, got.Title)
	}
	if got.ContextConfig.ContextID != "coding" {
		t.Errorf("ContextID = %q, want %q", got.ContextConfig.ContextID, "coding")
	}
}

func TestDeactivate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := s.Deactivate(ctx, sess.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if _, err := s.Session(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Session() error = %v, want ErrNotFound", err)
	}
	if err := s.Deactivate(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deactivate(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessionsForUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sess := newTestSession("user-1", time.Hour)
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatal(err)
		}
		if i == 2 {
			if err := s.Deactivate(ctx, sess.ID); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := s.CreateSession(ctx, newTestSession("user-2", time.Hour)); err != nil {
		t.Fatal(err)
	}

	active, err := s.SessionsForUser(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("SessionsForUser() error = %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active sessions = %d, want 2", len(active))
	}

	all, err := s.SessionsForUser(ctx, "user-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all sessions = %d, want 3", len(all))
	}
}

func TestAddMessageAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	contents := []string{"hello", "hi there", "how are you?", "fine", "great"}
	for i, c := range contents {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if _, err := s.AddMessage(ctx, sess.ID, role, c, nil); err != nil {
			t.Fatalf("AddMessage(%d) error = %v", i, err)
		}
	}

	h, err := s.MessageHistory(ctx, sess.ID, 2, 0)
	if err != nil {
		t.Fatalf("MessageHistory() error = %v", err)
	}
	if h.TotalCount != 5 {
		t.Errorf("TotalCount = %d, want 5", h.TotalCount)
	}
	if len(h.Messages) != 2 || h.Messages[0].Content != "hello" {
		t.Errorf("first page = %+v, want [hello, hi there]", h.Messages)
	}
	if !h.HasMore {
		t.Error("HasMore = false, want true")
	}

	h, err = s.MessageHistory(ctx, sess.ID, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Messages) != 1 || h.Messages[0].Content != "great" {
		t.Errorf("last page = %+v, want [great]", h.Messages)
	}
	if h.HasMore {
		t.Error("HasMore = true on last page, want false")
	}
}

func TestAddMessageRejectsInactiveSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := s.Deactivate(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddMessage(ctx, sess.ID, RoleUser, "hello", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddMessage() error = %v, want ErrNotFound", err)
	}
}

func TestConversationContextExcludesSystem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	for _, m := range []struct{ role, content string }{
		{RoleUser, "q1"},
		{RoleAssistant, "a1"},
		{RoleSystem, "Error: provider down"},
		{RoleUser, "q2"},
	} {
		if _, err := s.AddMessage(ctx, sess.ID, m.role, m.content, nil); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.ConversationContext(ctx, sess.ID, 10)
	if err != nil {
		t.Fatalf("ConversationContext() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3 (system excluded)", len(msgs))
	}
	if msgs[0].Content != "q1" || msgs[2].Content != "q2" {
		t.Errorf("order = [%s ... %s], want chronological", msgs[0].Content, msgs[2].Content)
	}
}

func TestMessageMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", time.Hour)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	meta := map[string]any{
		"llm_metadata": map[string]any{
			"usage": map[string]any{"total_tokens": float64(42)},
		},
	}
	if _, err := s.AddMessage(ctx, sess.ID, RoleAssistant, "answer", meta); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.SessionMessages(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len = %d, want 1", len(msgs))
	}
	llmMeta, ok := msgs[0].Metadata["llm_metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata = %+v, want nested llm_metadata", msgs[0].Metadata)
	}
	if _, ok := llmMeta["usage"]; !ok {
		t.Error("usage missing from round-tripped metadata")
	}
}

func TestSweepExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, newTestSession("user-1", -time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSession(ctx, newTestSession("user-1", time.Hour)); err != nil {
		t.Fatal(err)
	}

	swept, err := s.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired() error = %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	active, err := s.SessionsForUser(ctx, "user-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Errorf("active after sweep = %d, want 1", len(active))
	}
}

func TestExtendTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("user-1", time.Minute)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	if err := s.ExtendTTL(ctx, sess.ID, time.Hour); err != nil {
		t.Fatalf("ExtendTTL() error = %v", err)
	}
	got, err := s.Session(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !got.ExpiresAt.After(time.Now().Add(50 * time.Minute)) {
		t.Errorf("expiry = %v, want roughly an hour out", got.ExpiresAt)
	}

	if err := s.ExtendTTL(ctx, "chat_session_missing", time.Hour); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing session error = %v, want ErrNotFound", err)
	}
}

func TestNewSessionID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	if a == b {
		t.Error("NewSessionID() returned duplicate IDs")
	}
	if len(a) != len("chat_session_")+32 {
		t.Errorf("ID length = %d, want %d", len(a), len("chat_session_")+32)
	}
}
