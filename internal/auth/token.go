// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package auth implements stateless bearer-token authentication.
//
// Tokens are HMAC-SHA256 signed: base64url(payload) + "." + base64url(mac).
// The payload carries the user ID and expiry. There is no token database;
// revocation happens by rotating the signing secret.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired is returned for well-formed but expired tokens.
	ErrTokenExpired = errors.New("auth: token expired")
)

type payload struct {
	UserID    string `json:"uid"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

// Signer issues and verifies bearer tokens with a shared secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a token signer. The secret must not be empty.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret must not be empty")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Issue mints a token for userID valid for ttl.
func (s *Signer) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: user id must not be empty")
	}
	now := time.Now()
	body, err := json.Marshal(payload{
		UserID:    userID,
		ExpiresAt: now.Add(ttl).Unix(),
		IssuedAt:  now.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("auth: payload encode failed: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + s.sign(encoded), nil
}

// Verify checks the token signature and expiry and returns the Principal.
func (s *Signer) Verify(token string) (*Principal, error) {
	encoded, mac, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || mac == "" {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(mac)) {
		return nil, ErrInvalidToken
	}

	body, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var p payload
	if err := json.Unmarshal(body, &p); err != nil || p.UserID == "" {
		return nil, ErrInvalidToken
	}
	if time.Now().Unix() >= p.ExpiresAt {
		return nil, ErrTokenExpired
	}

	return &Principal{
		UserID:   p.UserID,
		IssuedAt: time.Unix(p.IssuedAt, 0),
		Expires:  time.Unix(p.ExpiresAt, 0),
	}, nil
}

func (s *Signer) sign(encoded string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
