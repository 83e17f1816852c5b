package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/password"
	"github.com/modboard/modboard/pkg/users"
)

const sessionKeyPrefix = "session:"

// DefaultSessionTTL is how long an issued session stays valid.
const DefaultSessionTTL = 24 * time.Hour

// Session is the stored bearer-session record: an opaque token, a
// sanitized user snapshot, and an expiry checked lazily at read time.
type Session struct {
	Token     string     `json:"token"`
	User      users.View `json:"user"`
	ExpiresAt int64      `json:"expiresAt"`
}

// Sessions issues, validates, and invalidates bearer sessions.
type Sessions struct {
	kv     kv.Store
	users  *users.Store
	hasher *password.Hasher
	ttl    time.Duration
}

// NewSessions creates the session manager.
func NewSessions(store kv.Store, userStore *users.Store, hasher *password.Hasher, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{kv: store, users: userStore, hasher: hasher, ttl: ttl}
}

func sessionKey(token string) string { return sessionKeyPrefix + token }

// Login verifies credentials and mints a session. A missing user and a
// wrong password produce the same generic failure; a disabled account is
// reported distinctly. The asymmetry is deliberate.
func (s *Sessions) Login(ctx context.Context, username, pass string) (*Session, error) {
	u, ok, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if !ok || !password.Verify(pass, u.Password) {
		return nil, errs.Unauthorized("invalid username or password")
	}
	if u.Status == users.StatusDisabled {
		return nil, errs.Forbidden("account is disabled")
	}

	root, err := s.users.RootAdmin(ctx)
	if err != nil {
		return nil, err
	}

	token, err := NewSessionToken()
	if err != nil {
		return nil, errs.Internal("generating session token", err)
	}

	sess := &Session{
		Token:     token,
		User:      u.View(u.Username == root),
		ExpiresAt: time.Now().Add(s.ttl).UnixMilli(),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, errs.Internal("encoding session", err)
	}
	if err := s.kv.Put(ctx, sessionKey(token), string(raw)); err != nil {
		return nil, errs.Internal("storing session", err)
	}
	return sess, nil
}

// Validate resolves a token to its session. Absent and expired records
// both resolve to nil; expired records are left in place (lazy expiry,
// no background sweep).
func (s *Sessions) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	raw, ok, err := s.kv.Get(ctx, sessionKey(token))
	if err != nil {
		return nil, errs.Internal("loading session", err)
	}
	if !ok {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, errs.Internal("decoding session", err)
	}
	if time.Now().UnixMilli() > sess.ExpiresAt {
		return nil, nil
	}
	return &sess, nil
}

// Logout deletes the session record; absent records are a no-op.
func (s *Sessions) Logout(ctx context.Context, token string) error {
	if err := s.kv.Delete(ctx, sessionKey(token)); err != nil {
		return errs.Internal("deleting session", err)
	}
	return nil
}

// ChangePassword lets an authenticated user rotate their own password
// after proving the current one.
func (s *Sessions) ChangePassword(ctx context.Context, username, current, next string) error {
	if len(next) < users.MinPasswordLength {
		return errs.Newf(errs.KindValidation, "password must be at least %d characters", users.MinPasswordLength)
	}

	u, ok, err := s.users.Get(ctx, username)
	if err != nil {
		return err
	}
	if !ok || !password.Verify(current, u.Password) {
		return errs.Unauthorized("current password is incorrect")
	}

	rec, err := s.hasher.Hash(next)
	if err != nil {
		return errs.Internal("hashing password", err)
	}
	u.Password = rec
	return s.users.Put(ctx, u)
}
