// SPDX-License-Identifier: MIT

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ManuGH/chatrelay/internal/cache"
	"github.com/ManuGH/chatrelay/internal/metrics"
)

// CachedResponse is a fully processed turn stored for replay.
type CachedResponse struct {
	Content        string         `json:"content"`
	StructuredData map[string]any `json:"structured_data"`
	Enhancements   map[string]any `json:"enhancements"`
	Provider       string         `json:"provider"`
	Model          string         `json:"model"`
	CachedAt       time.Time      `json:"cached_at"`
}

// ResponseCache stores processed responses keyed by message, preset and
// user preferences.
type ResponseCache struct {
	backend cache.Cache
	ttl     time.Duration
}

// NewResponseCache wraps a cache backend. A zero ttl disables expiry
// decisions here and defers to the backend default.
func NewResponseCache(backend cache.Cache, ttl time.Duration) *ResponseCache {
	return &ResponseCache{backend: backend, ttl: ttl}
}

// Key derives a deterministic cache key from the message and the parts of
// the context that change the answer.
func (rc *ResponseCache) Key(message string, pc Context) string {
	payload, _ := json.Marshal(struct {
		Message     string      `json:"message"`
		PresetKey   string      `json:"preset_key"`
		Preferences Preferences `json:"user_preferences"`
	}{message, pc.PresetKey, pc.Preferences})

	sum := sha256.Sum256(payload)
	return "chat_response:" + hex.EncodeToString(sum[:])
}

// Get returns the cached response for a key, if present.
func (rc *ResponseCache) Get(key string) (*CachedResponse, bool) {
	raw, ok := rc.backend.Get(key)
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		rc.backend.Delete(key)
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return &resp, true
}

// Put stores a processed response.
func (rc *ResponseCache) Put(key string, resp CachedResponse) {
	resp.CachedAt = time.Now()
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	rc.backend.Set(key, raw, rc.ttl)
}
