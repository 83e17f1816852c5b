// Package middleware provides the HTTP middleware chain: session
// authentication, request logging with metrics, and panic recovery.
package middleware

import (
	"net/http"
	"strings"

	"github.com/modboard/modboard/pkg/auth"
	"github.com/modboard/modboard/pkg/contextkeys"
	"github.com/modboard/modboard/pkg/httputil"
)

// SessionAuth validates the bearer session token and injects the session
// into the request context. With optional set, requests without a token
// pass through unauthenticated; handlers then see a nil session.
type SessionAuth struct {
	sessions *auth.Sessions
	optional bool
}

// NewSessionAuth creates the session middleware.
func NewSessionAuth(sessions *auth.Sessions, optional bool) *SessionAuth {
	return &SessionAuth{sessions: sessions, optional: optional}
}

// Handler wraps next with session authentication.
func (m *SessionAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		sess, err := m.sessions.Validate(r.Context(), parts[1])
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if sess == nil {
			httputil.WriteUnauthorized(w, "invalid or expired session")
			return
		}

		ctx := contextkeys.WithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Session extracts the authenticated session from a request, nil when
// absent.
func Session(r *http.Request) *auth.Session {
	return contextkeys.SessionFrom(r.Context())
}
