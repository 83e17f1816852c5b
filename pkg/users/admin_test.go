package users

import (
	"context"
	"testing"
	"time"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/password"
)

func newAdminFixture(t *testing.T) (*Service, *Store) {
	t.Helper()
	store := NewStore(kv.NewMemoryStore())
	return NewService(store, password.NewHasher(1000)), store
}

// seedRoot installs the root Super the way bootstrap would.
func seedRoot(t *testing.T, store *Store) View {
	t.Helper()
	ctx := context.Background()
	rec, err := password.NewHasher(1000).Hash("root-password-1")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	u := &User{
		Username:  "root",
		Role:      RoleSuper,
		Status:    StatusActive,
		Password:  rec,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := store.Put(ctx, u); err != nil {
		t.Fatalf("seeding root: %v", err)
	}
	if err := store.SetRootAdmin(ctx, "root"); err != nil {
		t.Fatalf("SetRootAdmin: %v", err)
	}
	return u.View(true)
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, store := newAdminFixture(t)
	root := seedRoot(t, store)

	t.Run("validates input", func(t *testing.T) {
		cases := []struct {
			name     string
			username string
			pass     string
			role     string
		}{
			{"bad charset", "has space", "long-enough-1", "editor"},
			{"short password", "bob", "short", "editor"},
			{"unknown role", "bob", "long-enough-1", "owner"},
		}
		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				if _, err := svc.Create(ctx, root, c.username, c.pass, c.role, "", nil); !errs.IsKind(err, errs.KindValidation) {
					t.Errorf("got %v", err)
				}
			})
		}
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		if _, err := svc.Create(ctx, root, "bob", "long-enough-1", "editor", "Bob", nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := svc.Create(ctx, root, "bob", "long-enough-1", "editor", "", nil); !errs.IsKind(err, errs.KindConflict) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("only the root admin creates supers", func(t *testing.T) {
		other, err := svc.Create(ctx, root, "admin2", "long-enough-1", "super", "", nil)
		if err != nil {
			t.Fatalf("root creating a super: %v", err)
		}
		if _, err := svc.Create(ctx, other, "admin3", "long-enough-1", "super", "", nil); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("non-root super created a super: %v", err)
		}
	})
}

func TestServiceGuardRules(t *testing.T) {
	ctx := context.Background()
	svc, store := newAdminFixture(t)
	root := seedRoot(t, store)

	super2, err := svc.Create(ctx, root, "admin2", "long-enough-1", "super", "", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, root, "ed", "long-enough-1", "editor", "", []string{"game_v1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("root admin is untouchable", func(t *testing.T) {
		if err := svc.Delete(ctx, super2, "root"); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("delete: %v", err)
		}
		if _, err := svc.SetStatus(ctx, super2, "root", "disabled"); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("set-status: %v", err)
		}
		if err := svc.ResetPassword(ctx, super2, "root", "new-password-1"); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("reset-password: %v", err)
		}
		role := "editor"
		if _, err := svc.Update(ctx, super2, "root", UpdateParams{Role: &role}); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("update: %v", err)
		}
	})

	t.Run("actors cannot target themselves", func(t *testing.T) {
		if err := svc.Delete(ctx, super2, "admin2"); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("missing target is a validation failure", func(t *testing.T) {
		if err := svc.Delete(ctx, root, "nobody"); !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("non-root supers cannot touch other supers", func(t *testing.T) {
		if _, err := svc.Create(ctx, root, "admin3", "long-enough-1", "super", "", nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := svc.Delete(ctx, super2, "admin3"); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("got %v", err)
		}
		if err := svc.Delete(ctx, root, "admin3"); err != nil {
			t.Errorf("root deleting a super: %v", err)
		}
	})

	t.Run("editors are fair game for supers", func(t *testing.T) {
		name := "Eddy"
		view, err := svc.Update(ctx, super2, "ed", UpdateParams{DisplayName: &name})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if view.DisplayName != "Eddy" {
			t.Errorf("view = %+v", view)
		}
	})
}

func TestServiceLastActiveSuper(t *testing.T) {
	ctx := context.Background()
	svc, store := newAdminFixture(t)

	// The root marker can point at a username with no record after a
	// partial bootstrap; the invariant must still hold for the one
	// remaining active Super.
	if err := store.SetRootAdmin(ctx, "ghost"); err != nil {
		t.Fatalf("SetRootAdmin: %v", err)
	}
	actor := View{Username: "ghost", Role: RoleSuper, IsRootAdmin: true}

	rec, err := password.NewHasher(1000).Hash("long-enough-1")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if err := store.Put(ctx, &User{Username: "solo", Role: RoleSuper, Status: StatusActive, Password: rec}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := svc.Delete(ctx, actor, "solo"); !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("delete last super: %v", err)
	}
	if _, err := svc.SetStatus(ctx, actor, "solo", "disabled"); !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("disable last super: %v", err)
	}
	role := "editor"
	if _, err := svc.Update(ctx, actor, "solo", UpdateParams{Role: &role}); !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("demote last super: %v", err)
	}

	// With a second active Super the same operations go through.
	if err := store.Put(ctx, &User{Username: "backup", Role: RoleSuper, Status: StatusActive, Password: rec}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := svc.SetStatus(ctx, actor, "solo", "disabled"); err != nil {
		t.Errorf("disable with a backup super: %v", err)
	}
}

func TestServiceSetStatusAndResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, store := newAdminFixture(t)
	root := seedRoot(t, store)

	if _, err := svc.Create(ctx, root, "ed", "long-enough-1", "editor", "", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	view, err := svc.SetStatus(ctx, root, "ed", "disabled")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if view.Status != StatusDisabled {
		t.Errorf("status = %q", view.Status)
	}
	if _, err := svc.SetStatus(ctx, root, "ed", "sleeping"); !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("bad status: %v", err)
	}

	if err := svc.ResetPassword(ctx, root, "ed", "short"); !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("short password: %v", err)
	}
	if err := svc.ResetPassword(ctx, root, "ed", "fresh-password-1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	u, ok, err := store.Get(ctx, "ed")
	if err != nil || !ok {
		t.Fatalf("Get: %v %v", ok, err)
	}
	if !password.Verify("fresh-password-1", u.Password) {
		t.Error("new password does not verify")
	}
}

func TestServiceListStripsSecrets(t *testing.T) {
	ctx := context.Background()
	svc, store := newAdminFixture(t)
	root := seedRoot(t, store)

	if _, err := svc.Create(ctx, root, "ed", "long-enough-1", "editor", "", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	views, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len = %d, want 2", len(views))
	}
	rootSeen := false
	for _, v := range views {
		if v.Username == "root" {
			rootSeen = true
			if !v.IsRootAdmin {
				t.Error("root view missing isRootAdmin")
			}
		}
	}
	if !rootSeen {
		t.Error("root missing from list")
	}
}
