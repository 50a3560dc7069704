// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"time"
)

// SessionStats are per-user session counts over a window.
type SessionStats struct {
	TotalSessions  int `json:"total_sessions"`
	ActiveSessions int `json:"active_sessions"`
}

// MessageStats are per-user message counts over a window.
type MessageStats struct {
	TotalMessages     int `json:"total_messages"`
	UserMessages      int `json:"user_messages"`
	AssistantMessages int `json:"assistant_messages"`
	SystemMessages    int `json:"system_messages"`
}

// ProviderUsage aggregates load per provider.
type ProviderUsage struct {
	Provider     string `json:"provider"`
	SessionCount int    `json:"session_count"`
	MessageCount int    `json:"message_count"`
}

// SessionStatsForUser counts a user's sessions created inside [from, to].
func (s *Store) SessionStatsForUser(ctx context.Context, userID string, from, to time.Time) (*SessionStats, error) {
	var st SessionStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(active), 0)
		FROM sessions
		WHERE user_id = ? AND created_at_ms BETWEEN ? AND ?`,
		userID, timeToMs(from), timeToMs(to),
	).Scan(&st.TotalSessions, &st.ActiveSessions)
	if err != nil {
		return nil, fmt.Errorf("store: session stats failed: %w", err)
	}
	return &st, nil
}

// MessageStatsForUser counts a user's messages created inside [from, to].
func (s *Store) MessageStatsForUser(ctx context.Context, userID string, from, to time.Time) (*MessageStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.role, COUNT(*)
		FROM messages m
		JOIN sessions sess ON sess.session_id = m.session_id
		WHERE sess.user_id = ? AND m.created_at_ms BETWEEN ? AND ?
		GROUP BY m.role`,
		userID, timeToMs(from), timeToMs(to),
	)
	if err != nil {
		return nil, fmt.Errorf("store: message stats failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var st MessageStats
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		st.TotalMessages += count
		switch role {
		case RoleUser:
			st.UserMessages = count
		case RoleAssistant:
			st.AssistantMessages = count
		case RoleSystem:
			st.SystemMessages = count
		}
	}
	return &st, rows.Err()
}

// ProviderUsageForUser aggregates session and message counts per provider
// for sessions created inside [from, to]. The provider lives inside the
// session's JSON model config; SQLite's json_extract reaches into it.
func (s *Store) ProviderUsageForUser(ctx context.Context, userID string, from, to time.Time) ([]ProviderUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			COALESCE(json_extract(sess.model_config_json, '$.provider'), 'unknown') AS provider,
			COUNT(DISTINCT sess.session_id),
			COUNT(m.id)
		FROM sessions sess
		LEFT JOIN messages m ON m.session_id = sess.session_id
		WHERE sess.user_id = ? AND sess.created_at_ms BETWEEN ? AND ?
		GROUP BY provider
		ORDER BY provider`,
		userID, timeToMs(from), timeToMs(to),
	)
	if err != nil {
		return nil, fmt.Errorf("store: provider usage failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var usage []ProviderUsage
	for rows.Next() {
		var u ProviderUsage
		if err := rows.Scan(&u.Provider, &u.SessionCount, &u.MessageCount); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// SessionMessages returns every message of a session in chronological order,
// bypassing the active/expiry gate. Used for insight generation over
// historical sessions.
func (s *Store) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, metadata_json, created_at_ms
		FROM messages WHERE session_id = ?
		ORDER BY created_at_ms ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: session messages failed: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// MessagesForUser returns all of a user's messages created inside [from, to]
// across sessions, in chronological order.
func (s *Store) MessagesForUser(ctx context.Context, userID string, from, to time.Time) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.session_id, m.role, m.content, m.metadata_json, m.created_at_ms
		FROM messages m
		JOIN sessions sess ON sess.session_id = m.session_id
		WHERE sess.user_id = ? AND m.created_at_ms BETWEEN ? AND ?
		ORDER BY m.created_at_ms ASC, m.id ASC`,
		userID, timeToMs(from), timeToMs(to))
	if err != nil {
		return nil, fmt.Errorf("store: user messages failed: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// SessionsCreatedBetween lists a user's sessions created inside [from, to],
// regardless of active flag or expiry.
func (s *Store) SessionsCreatedBetween(ctx context.Context, userID string, from, to time.Time) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, title, model_config_json, context_config_json, active, created_at_ms, updated_at_ms, expires_at_ms
		FROM sessions
		WHERE user_id = ? AND created_at_ms BETWEEN ? AND ?
		ORDER BY created_at_ms DESC`,
		userID, timeToMs(from), timeToMs(to))
	if err != nil {
		return nil, fmt.Errorf("store: sessions window failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionAnyState loads a session regardless of active flag or expiry.
func (s *Store) SessionAnyState(ctx context.Context, sessionID string) (*Session, error) {
	return s.scanSession(ctx, `
		SELECT session_id, user_id, title, model_config_json, context_config_json, active, created_at_ms, updated_at_ms, expires_at_ms
		FROM sessions WHERE session_id = ?`, sessionID)
}
