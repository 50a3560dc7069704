// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store persists chat sessions and messages in SQLite.
package store

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/chatrelay/internal/provider"
)

const schemaVersion = 1

var (
	// ErrNotFound is returned when a session or message does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrSessionExpired is returned for sessions past their TTL. The lookup
	// also deactivates the session.
	ErrSessionExpired = errors.New("store: session expired")
)

// Role values for chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session is one ephemeral chat session with TTL.
type Session struct {
	ID            string
	UserID        string
	Title         string
	ModelConfig   provider.ModelConfig
	ContextConfig provider.ContextConfig
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     time.Time

	// MessageCount is populated on reads, not persisted directly.
	MessageCount int
}

// Expired reports whether the session is past its TTL.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Message is one user/assistant/system message inside a session.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store is the SQLite-backed session and message store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at dbPath and applies migrations.
func Open(dbPath string) (*Store, error) {
	db, err := openSQLite(dbPath, DefaultSQLiteConfig())
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration failed: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity for readiness probes.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	var currentVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}

	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT 'New Chat',
		model_config_json TEXT NOT NULL,
		context_config_json TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL,
		expires_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, updated_at_ms DESC);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at_ms);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		created_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at_ms);
	`

	if _, err := tx.Exec(schema); err != nil {
		return err
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}

// NewSessionID generates an unguessable session identifier.
func NewSessionID() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; still avoid
		// returning a predictable ID.
		buf = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
	}
	sum := sha256.Sum256(buf)
	return "chat_session_" + hex.EncodeToString(sum[:])[:32]
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func timeToMs(t time.Time) int64 {
	return t.UnixMilli()
}
