// Package users persists administrator records and implements the
// role-guarded admin operations on them.
package users

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
)

const (
	userKeyPrefix = "user:"
	rootAdminKey  = "system:rootadmin"
)

// Store reads and writes user records and the root-admin marker.
type Store struct {
	kv kv.Store
}

// NewStore creates a user store over the given key-value store.
func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

func userKey(username string) string { return userKeyPrefix + username }

// Get loads a user record. A missing user is reported via ok, not error.
func (s *Store) Get(ctx context.Context, username string) (*User, bool, error) {
	raw, ok, err := s.kv.Get(ctx, userKey(username))
	if err != nil {
		return nil, false, errs.Internal("loading user", err)
	}
	if !ok {
		return nil, false, nil
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false, errs.Internal("decoding user record", err)
	}
	return &u, true, nil
}

// Put writes a user record.
func (s *Store) Put(ctx context.Context, u *User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return errs.Internal("encoding user record", err)
	}
	if err := s.kv.Put(ctx, userKey(u.Username), string(raw)); err != nil {
		return errs.Internal("storing user", err)
	}
	return nil
}

// Delete removes a user record.
func (s *Store) Delete(ctx context.Context, username string) error {
	if err := s.kv.Delete(ctx, userKey(username)); err != nil {
		return errs.Internal("deleting user", err)
	}
	return nil
}

// List loads every user record, scanning the user namespace to
// exhaustion.
func (s *Store) List(ctx context.Context) ([]*User, error) {
	it := s.kv.Scan(ctx, userKeyPrefix)

	out := make([]*User, 0)
	for it.Next(ctx) {
		raw, ok, err := s.kv.Get(ctx, it.Key())
		if err != nil {
			return nil, errs.Internal("loading user", err)
		}
		if !ok {
			// Deleted between scan and get; skip.
			continue
		}
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, errs.Internal(fmt.Sprintf("decoding user record %s", it.Key()), err)
		}
		out = append(out, &u)
	}
	if err := it.Err(); err != nil {
		return nil, errs.Internal("scanning users", err)
	}
	return out, nil
}

// RootAdmin returns the designated root-admin username, empty if unset.
func (s *Store) RootAdmin(ctx context.Context) (string, error) {
	name, _, err := s.kv.Get(ctx, rootAdminKey)
	if err != nil {
		return "", errs.Internal("loading root admin marker", err)
	}
	return name, nil
}

// SetRootAdmin writes the root-admin designation. It is set exactly once
// at bootstrap and immutable thereafter.
func (s *Store) SetRootAdmin(ctx context.Context, username string) error {
	existing, err := s.RootAdmin(ctx)
	if err != nil {
		return err
	}
	if existing != "" {
		return errs.Conflict("root admin already designated")
	}
	if err := s.kv.Put(ctx, rootAdminKey, username); err != nil {
		return errs.Internal("storing root admin marker", err)
	}
	return nil
}

// CountActiveSupers counts Active users with the Super role.
func (s *Store) CountActiveSupers(ctx context.Context) (int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, u := range all {
		if u.Role == RoleSuper && u.Status == StatusActive {
			n++
		}
	}
	return n, nil
}
