// SPDX-License-Identifier: MIT

package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/chatrelay/internal/cache"
)

func TestResponseCacheKey(t *testing.T) {
	rc := NewResponseCache(cache.NewNoOpCache(), time.Minute)

	pc := Context{PresetKey: "claude_balanced", Preferences: DefaultPreferences()}
	k1 := rc.Key("hello", pc)
	k2 := rc.Key("hello", pc)
	if k1 != k2 {
		t.Error("Key() not deterministic")
	}
	if !strings.HasPrefix(k1, "chat_response:") {
		t.Errorf("Key() = %q, want chat_response: prefix", k1)
	}

	if rc.Key("other", pc) == k1 {
		t.Error("different messages must produce different keys")
	}

	pc2 := pc
	pc2.PresetKey = "gpt_balanced"
	if rc.Key("hello", pc2) == k1 {
		t.Error("different presets must produce different keys")
	}

	pc3 := pc
	pc3.Preferences.Tone = "formal"
	if rc.Key("hello", pc3) == k1 {
		t.Error("different preferences must produce different keys")
	}

	// Session and user do not influence the key; identical turns share
	// cached responses across sessions.
	pc4 := pc
	pc4.SessionID = "other-session"
	pc4.UserID = "other-user"
	if rc.Key("hello", pc4) != k1 {
		t.Error("session identity leaked into cache key")
	}
}

func TestResponseCacheRoundTrip(t *testing.T) {
	rc := NewResponseCache(cache.NewMemoryCache(time.Minute), time.Minute)
	key := rc.Key("hello", Context{PresetKey: "claude_balanced"})

	if _, ok := rc.Get(key); ok {
		t.Fatal("Get() hit on empty cache")
	}

	rc.Put(key, CachedResponse{
		Content:  "Hi there!",
		Provider: "anthropic",
		Model:    "claude-3-5-sonnet-20241022",
	})

	got, ok := rc.Get(key)
	if !ok {
		t.Fatal("Get() miss after Put")
	}
	if got.Content != "Hi there!" || got.Provider != "anthropic" {
		t.Errorf("got = %+v, want stored response", got)
	}
	if got.CachedAt.IsZero() {
		t.Error("CachedAt not stamped on Put")
	}
}

func TestResponseCacheCorruptEntry(t *testing.T) {
	backend := cache.NewMemoryCache(time.Minute)
	rc := NewResponseCache(backend, time.Minute)

	backend.Set("chat_response:bad", []byte("not json"), time.Minute)
	if _, ok := rc.Get("chat_response:bad"); ok {
		t.Fatal("Get() returned corrupt entry")
	}
	// Corrupt entries are evicted on read.
	if _, ok := backend.Get("chat_response:bad"); ok {
		t.Error("corrupt entry still present after Get")
	}
}
