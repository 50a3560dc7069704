// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ManuGH/chatrelay/internal/log"
)

// SessionCookie is the browser session cookie name.
const SessionCookie = "chatrelay_session"

// ExtractToken retrieves the bearer token from the request.
// Order of precedence:
//  1. Authorization: Bearer <token>
//  2. Cookie: chatrelay_session
//  3. Header: X-API-Token
//  4. Query: ?token= (if enabled; required for browser WebSocket clients)
func ExtractToken(r *http.Request, allowQuery bool) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}

	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	if t := r.Header.Get("X-API-Token"); t != "" {
		return t
	}

	if allowQuery {
		if t := r.URL.Query().Get("token"); t != "" {
			return t
		}
	}

	return ""
}

// Middleware enforces token authentication and attaches the Principal and
// user ID to the request context.
func Middleware(signer *Signer, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, allowQuery)
			if token == "" {
				unauthorized(w, "missing credentials")
				return
			}

			principal, err := signer.Verify(token)
			if err != nil {
				logger := log.WithComponentFromContext(r.Context(), "auth")
				logger.Warn().
					Str("event", "auth.rejected").
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Err(err).
					Msg("request rejected")
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			ctx = log.ContextWithUserID(ctx, principal.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="chatrelay"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  "unauthorized",
		"detail": detail,
	})
}
