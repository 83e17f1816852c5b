// Package system implements the one-time, token-gated bootstrap flow and
// the initialized marker nearly every other endpoint is gated on.
package system

import (
	"context"
	"crypto/subtle"
	"regexp"
	"time"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/mods"
	"github.com/modboard/modboard/pkg/password"
	"github.com/modboard/modboard/pkg/users"
)

const initializedKey = "system:initialized"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// seedMods is the default catalog created at bootstrap.
var seedMods = []mods.Mod{
	{ID: "announcements", Name: "Announcements"},
	{ID: "events", Name: "Events"},
}

// Status is the public bootstrap state.
type Status struct {
	Initialized       bool   `json:"initialized"`
	RootAdminUsername string `json:"rootAdminUsername,omitempty"`
}

// Bootstrap performs first-run initialization.
type Bootstrap struct {
	kv        kv.Store
	users     *users.Store
	registry  *mods.Registry
	hasher    *password.Hasher
	initToken string
}

// NewBootstrap creates the bootstrap service. An empty initToken disables
// initialization entirely.
func NewBootstrap(store kv.Store, userStore *users.Store, registry *mods.Registry, hasher *password.Hasher, initToken string) *Bootstrap {
	return &Bootstrap{
		kv:        store,
		users:     userStore,
		registry:  registry,
		hasher:    hasher,
		initToken: initToken,
	}
}

// Initialized reads the durable marker.
func (b *Bootstrap) Initialized(ctx context.Context) (bool, error) {
	val, ok, err := b.kv.Get(ctx, initializedKey)
	if err != nil {
		return false, errs.Internal("loading initialized marker", err)
	}
	return ok && val == "true", nil
}

// Status reports whether the system is initialized and, if so, the
// root-admin username.
func (b *Bootstrap) Status(ctx context.Context) (Status, error) {
	initialized, err := b.Initialized(ctx)
	if err != nil {
		return Status{}, err
	}
	if !initialized {
		return Status{}, nil
	}
	root, err := b.users.RootAdmin(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{Initialized: true, RootAdminUsername: root}, nil
}

// Init creates the first administrator, designates them root admin, seeds
// the default mod catalog, and only then flips the initialized marker.
// The marker is written last so a crash mid-bootstrap reads as "not yet
// initialized" and the whole flow is safely retryable.
func (b *Bootstrap) Init(ctx context.Context, initToken, username, pass, displayName string) (Status, error) {
	initialized, err := b.Initialized(ctx)
	if err != nil {
		return Status{}, err
	}
	if initialized {
		return Status{}, errs.Conflict("system is already initialized")
	}

	if b.initToken == "" {
		return Status{}, errs.Unauthorized("initialization is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(initToken), []byte(b.initToken)) != 1 {
		return Status{}, errs.Unauthorized("invalid init token")
	}

	if !usernamePattern.MatchString(username) {
		return Status{}, errs.Validation("username must match [A-Za-z0-9_-]+")
	}
	if len(pass) < users.MinPasswordLength {
		return Status{}, errs.Newf(errs.KindValidation, "password must be at least %d characters", users.MinPasswordLength)
	}

	// A crashed earlier attempt may already have designated the root
	// admin; the same username retrying is fine, a different one is not.
	existingRoot, err := b.users.RootAdmin(ctx)
	if err != nil {
		return Status{}, err
	}
	if existingRoot != "" && existingRoot != username {
		return Status{}, errs.Conflict("a different root admin was already designated")
	}

	rec, err := b.hasher.Hash(pass)
	if err != nil {
		return Status{}, errs.Internal("hashing password", err)
	}

	root := &users.User{
		Username:    username,
		Role:        users.RoleSuper,
		Status:      users.StatusActive,
		DisplayName: displayName,
		Password:    rec,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if err := b.users.Put(ctx, root); err != nil {
		return Status{}, err
	}
	if existingRoot == "" {
		if err := b.users.SetRootAdmin(ctx, username); err != nil {
			return Status{}, err
		}
	}

	for _, m := range seedMods {
		if _, err := b.registry.Create(ctx, m.ID, m.Name); err != nil {
			// A retried bootstrap may find seeds from the earlier
			// attempt already present.
			if !errs.IsKind(err, errs.KindConflict) {
				return Status{}, err
			}
		}
	}

	if err := b.kv.Put(ctx, initializedKey, "true"); err != nil {
		return Status{}, errs.Internal("storing initialized marker", err)
	}

	return Status{Initialized: true, RootAdminUsername: username}, nil
}
