package users

import (
	"context"
	"regexp"
	"time"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/password"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MinPasswordLength is enforced on create, reset, and self change.
const MinPasswordLength = 8

// Service implements the admin operations on user records, enforcing the
// guard rules that protect the root admin and the last active Super.
type Service struct {
	store  *Store
	hasher *password.Hasher
}

// NewService creates the user admin service.
func NewService(store *Store, hasher *password.Hasher) *Service {
	return &Service{store: store, hasher: hasher}
}

// Store exposes the underlying record store to collaborating services.
func (s *Service) Store() *Store { return s.store }

// List returns sanitized views of every user, digest material stripped.
func (s *Service) List(ctx context.Context) ([]View, error) {
	root, err := s.store.RootAdmin(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(all))
	for _, u := range all {
		views = append(views, u.View(u.Username == root))
	}
	return views, nil
}

// Create adds a new user. Creating a Super is reserved to the root admin;
// duplicate usernames conflict.
func (s *Service) Create(ctx context.Context, actor View, username, pass, roleStr, displayName string, allowedMods []string) (View, error) {
	if !usernamePattern.MatchString(username) {
		return View{}, errs.Validation("username must match [A-Za-z0-9_-]+")
	}
	if len(pass) < MinPasswordLength {
		return View{}, errs.Newf(errs.KindValidation, "password must be at least %d characters", MinPasswordLength)
	}
	role, err := ParseRole(roleStr)
	if err != nil {
		return View{}, err
	}
	if role == RoleSuper && !actor.IsRootAdmin {
		return View{}, errs.Forbidden("only the root admin manages admin accounts")
	}

	if _, exists, err := s.store.Get(ctx, username); err != nil {
		return View{}, err
	} else if exists {
		return View{}, errs.Conflict("username already exists")
	}

	rec, err := s.hasher.Hash(pass)
	if err != nil {
		return View{}, errs.Internal("hashing password", err)
	}

	u := &User{
		Username:    username,
		Role:        role,
		Status:      StatusActive,
		DisplayName: displayName,
		AllowedMods: allowedMods,
		Password:    rec,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if err := s.store.Put(ctx, u); err != nil {
		return View{}, err
	}
	return u.View(false), nil
}

// UpdateParams are the mutable fields of a user record. Nil fields are
// left unchanged.
type UpdateParams struct {
	DisplayName *string
	AllowedMods *[]string
	Role        *string
}

// Update mutates a target user, subject to the guard rules. Demoting a
// Super is checked against the last-active-Super invariant.
func (s *Service) Update(ctx context.Context, actor View, username string, params UpdateParams) (View, error) {
	target, err := s.guardTarget(ctx, actor, username)
	if err != nil {
		return View{}, err
	}

	if params.Role != nil {
		role, err := ParseRole(*params.Role)
		if err != nil {
			return View{}, err
		}
		if role != target.Role && target.Role == RoleSuper {
			if err := s.requireAnotherActiveSuper(ctx, target); err != nil {
				return View{}, err
			}
		}
		target.Role = role
	}
	if params.DisplayName != nil {
		target.DisplayName = *params.DisplayName
	}
	if params.AllowedMods != nil {
		target.AllowedMods = *params.AllowedMods
	}

	if err := s.store.Put(ctx, target); err != nil {
		return View{}, err
	}
	return target.View(false), nil
}

// Delete removes a target user, subject to the guard rules and the
// last-active-Super invariant.
func (s *Service) Delete(ctx context.Context, actor View, username string) error {
	target, err := s.guardTarget(ctx, actor, username)
	if err != nil {
		return err
	}
	if target.Role == RoleSuper {
		if err := s.requireAnotherActiveSuper(ctx, target); err != nil {
			return err
		}
	}
	return s.store.Delete(ctx, username)
}

// SetStatus activates or disables a target user. Disabling the last
// active Super is rejected.
func (s *Service) SetStatus(ctx context.Context, actor View, username, statusStr string) (View, error) {
	status, err := ParseStatus(statusStr)
	if err != nil {
		return View{}, err
	}
	target, err := s.guardTarget(ctx, actor, username)
	if err != nil {
		return View{}, err
	}

	if status == StatusDisabled && target.Role == RoleSuper {
		if err := s.requireAnotherActiveSuper(ctx, target); err != nil {
			return View{}, err
		}
	}

	target.Status = status
	if err := s.store.Put(ctx, target); err != nil {
		return View{}, err
	}
	return target.View(false), nil
}

// ResetPassword replaces a target user's password, subject to the guard
// rules.
func (s *Service) ResetPassword(ctx context.Context, actor View, username, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return errs.Newf(errs.KindValidation, "password must be at least %d characters", MinPasswordLength)
	}
	target, err := s.guardTarget(ctx, actor, username)
	if err != nil {
		return err
	}

	rec, err := s.hasher.Hash(newPassword)
	if err != nil {
		return errs.Internal("hashing password", err)
	}
	target.Password = rec
	return s.store.Put(ctx, target)
}

// guardTarget loads the target and applies the admin guard rules:
// the root admin is immutable, Supers are managed only by the root
// admin, and actors cannot target themselves through admin endpoints.
func (s *Service) guardTarget(ctx context.Context, actor View, username string) (*User, error) {
	if username == actor.Username {
		return nil, errs.Forbidden("cannot manage your own account through admin endpoints")
	}

	root, err := s.store.RootAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if username == root {
		return nil, errs.Forbidden("the root admin cannot be modified")
	}

	target, ok, err := s.store.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Validation("no such user")
	}

	if target.Role == RoleSuper && !actor.IsRootAdmin {
		return nil, errs.Forbidden("only the root admin manages admin accounts")
	}
	return target, nil
}

// requireAnotherActiveSuper rejects an operation that would deactivate
// target if target is currently the only active Super.
func (s *Service) requireAnotherActiveSuper(ctx context.Context, target *User) error {
	if target.Status != StatusActive {
		return nil
	}
	n, err := s.store.CountActiveSupers(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return errs.Conflict("cannot remove the last active admin")
	}
	return nil
}
