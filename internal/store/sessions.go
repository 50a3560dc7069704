// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/chatrelay/internal/provider"
)

// CreateSession persists a new session. ID, timestamps and expiry must be set
// by the caller.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	modelJSON, err := json.Marshal(sess.ModelConfig)
	if err != nil {
		return fmt.Errorf("store: model config encode failed: %w", err)
	}
	contextJSON, err := json.Marshal(sess.ContextConfig)
	if err != nil {
		return fmt.Errorf("store: context config encode failed: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, title, model_config_json, context_config_json, active, created_at_ms, updated_at_ms, expires_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Title, string(modelJSON), string(contextJSON),
		boolToInt(sess.Active), timeToMs(sess.CreatedAt), timeToMs(sess.UpdatedAt), timeToMs(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("store: session insert failed: %w", err)
	}
	return nil
}

// Session loads an active session by ID. Expired sessions are deactivated on
// the spot and reported as ErrSessionExpired.
func (s *Store) Session(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.scanSession(ctx, `
		SELECT session_id, user_id, title, model_config_json, context_config_json, active, created_at_ms, updated_at_ms, expires_at_ms
		FROM sessions WHERE session_id = ? AND active = 1`, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Expired() {
		if err := s.Deactivate(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	count, err := s.MessageCount(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.MessageCount = count

	return sess, nil
}

// UpdateSessionConfig replaces the configuration and title of a session.
func (s *Store) UpdateSessionConfig(ctx context.Context, sessionID string, mc provider.ModelConfig, cc provider.ContextConfig, title string) error {
	modelJSON, err := json.Marshal(mc)
	if err != nil {
		return fmt.Errorf("store: model config encode failed: %w", err)
	}
	contextJSON, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("store: context config encode failed: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET model_config_json = ?, context_config_json = ?, title = ?, updated_at_ms = ?
		WHERE session_id = ? AND active = 1`,
		string(modelJSON), string(contextJSON), title, timeToMs(time.Now()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("store: session update failed: %w", err)
	}
	return requireRow(res)
}

// Deactivate marks a session inactive.
func (s *Store) Deactivate(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active = 0, updated_at_ms = ? WHERE session_id = ?`,
		timeToMs(time.Now()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("store: session deactivate failed: %w", err)
	}
	return requireRow(res)
}

// ExtendTTL pushes the session expiry to now+ttl.
func (s *Store) ExtendTTL(ctx context.Context, sessionID string, ttl time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at_ms = ?, updated_at_ms = ? WHERE session_id = ? AND active = 1`,
		timeToMs(time.Now().Add(ttl)), timeToMs(time.Now()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("store: ttl extend failed: %w", err)
	}
	return requireRow(res)
}

// SessionsForUser lists a user's sessions, newest first. With activeOnly set,
// expired sessions are deactivated and skipped.
func (s *Store) SessionsForUser(ctx context.Context, userID string, activeOnly bool) ([]*Session, error) {
	query := `
		SELECT session_id, user_id, title, model_config_json, context_config_json, active, created_at_ms, updated_at_ms, expires_at_ms
		FROM sessions WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY updated_at_ms DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("store: session list failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		if activeOnly && sess.Expired() {
			if err := s.Deactivate(ctx, sess.ID); err != nil {
				return nil, err
			}
			continue
		}
		count, err := s.MessageCount(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		sess.MessageCount = count
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SweepExpired deactivates every active session past its TTL and returns the
// number affected.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active = 0 WHERE active = 1 AND expires_at_ms < ?`,
		timeToMs(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("store: expiry sweep failed: %w", err)
	}
	return res.RowsAffected()
}

// PurgeInactive permanently removes inactive sessions not updated within the
// retention window. Messages cascade.
func (s *Store) PurgeInactive(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE active = 0 AND updated_at_ms < ?`,
		timeToMs(time.Now().Add(-retention)),
	)
	if err != nil {
		return 0, fmt.Errorf("store: purge failed: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) scanSession(ctx context.Context, query string, args ...any) (*Session, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	sess, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionRow(row rowScanner) (*Session, error) {
	var (
		sess                   Session
		modelJSON, contextJSON string
		active                 int
		createdMs, updatedMs   int64
		expiresMs              int64
	)
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Title, &modelJSON, &contextJSON, &active, &createdMs, &updatedMs, &expiresMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: session scan failed: %w", err)
	}

	if err := json.Unmarshal([]byte(modelJSON), &sess.ModelConfig); err != nil {
		return nil, fmt.Errorf("store: model config decode failed: %w", err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &sess.ContextConfig); err != nil {
		return nil, fmt.Errorf("store: context config decode failed: %w", err)
	}

	sess.Active = active == 1
	sess.CreatedAt = msToTime(createdMs)
	sess.UpdatedAt = msToTime(updatedMs)
	sess.ExpiresAt = msToTime(expiresMs)
	return &sess, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
