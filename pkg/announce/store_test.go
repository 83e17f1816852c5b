package announce

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/mods"
	"github.com/modboard/modboard/pkg/users"
)

var (
	superActor  = users.View{Username: "admin", Role: users.RoleSuper, DisplayName: "The Admin"}
	editorActor = users.View{Username: "ed", Role: users.RoleEditor, AllowedMods: []string{"game_v1"}}
)

func newAnnounceFixture(t *testing.T) (*Store, kv.Store) {
	t.Helper()
	ctx := context.Background()
	raw := kv.NewMemoryStore()
	registry := mods.NewRegistry(raw)
	for _, id := range []string{"game_v1", "test_server"} {
		if _, err := registry.Create(ctx, id, ""); err != nil {
			t.Fatalf("seeding mod %q: %v", id, err)
		}
	}
	return NewStore(raw, registry), raw
}

func TestAnnounceCreate(t *testing.T) {
	ctx := context.Background()
	store, _ := newAnnounceFixture(t)

	t.Run("defaults and attribution", func(t *testing.T) {
		ann, err := store.Create(ctx, superActor, CreateParams{
			ModID:   "game_v1",
			Title:   "Patch 1.2",
			Content: "<p>Fixes</p>",
			Version: "  1.2  ",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if ann.ID == "" || ann.Timestamp == 0 {
			t.Errorf("missing stamps: %+v", ann)
		}
		if ann.ClientContent != "<p>Fixes</p>" {
			t.Errorf("clientContent = %q, want content fallback", ann.ClientContent)
		}
		if ann.Version != "1.2" {
			t.Errorf("version = %q, want trimmed", ann.Version)
		}
		if ann.Author != "The Admin" {
			t.Errorf("author = %q, want display name", ann.Author)
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := store.Create(ctx, superActor, CreateParams{ModID: "game_v1", Content: "x"}); !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("missing title: %v", err)
		}
		if _, err := store.Create(ctx, superActor, CreateParams{ModID: "game_v1", Title: "x"}); !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("missing content: %v", err)
		}
		if _, err := store.Create(ctx, superActor, CreateParams{ModID: "ghost", Title: "x", Content: "x"}); !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("unknown mod: %v", err)
		}
	})

	t.Run("editor access is scoped", func(t *testing.T) {
		if _, err := store.Create(ctx, editorActor, CreateParams{ModID: "test_server", Title: "x", Content: "x"}); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("out-of-allowlist mod: %v", err)
		}
		if _, err := store.Create(ctx, editorActor, CreateParams{ModID: "game_v1", Title: "x", Content: "x"}); err != nil {
			t.Errorf("allowed mod: %v", err)
		}
	})
}

func TestAnnounceUpdateVersion(t *testing.T) {
	ctx := context.Background()
	store, _ := newAnnounceFixture(t)

	ann, err := store.Create(ctx, superActor, CreateParams{
		ModID: "game_v1", Title: "T", Content: "C", Version: "1.0",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	base := UpdateParams{ModID: "game_v1", ID: ann.ID, Title: "T2", Content: "C2"}

	t.Run("nil keeps the prior tag", func(t *testing.T) {
		got, err := store.Update(ctx, superActor, base)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Version != "1.0" {
			t.Errorf("version = %q, want 1.0", got.Version)
		}
		if got.Title != "T2" || got.Content != "C2" {
			t.Errorf("got = %+v", got)
		}
	})

	t.Run("explicit empty string clears it", func(t *testing.T) {
		p := base
		empty := ""
		p.Version = &empty
		got, err := store.Update(ctx, superActor, p)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Version != "" {
			t.Errorf("version = %q, want cleared", got.Version)
		}
	})

	t.Run("non-empty replaces it", func(t *testing.T) {
		p := base
		v := "2.0"
		p.Version = &v
		got, err := store.Update(ctx, superActor, p)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Version != "2.0" {
			t.Errorf("version = %q, want 2.0", got.Version)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		p := base
		p.ID = "ghost"
		if _, err := store.Update(ctx, superActor, p); !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("got %v", err)
		}
	})
}

func TestAnnounceDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newAnnounceFixture(t)

	ann, err := store.Create(ctx, editorActor, CreateParams{ModID: "game_v1", Title: "T", Content: "C"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("editors cannot delete, even in their own mods", func(t *testing.T) {
		if err := store.Delete(ctx, editorActor, "game_v1", ann.ID); !errs.IsKind(err, errs.KindForbidden) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("supers can", func(t *testing.T) {
		if err := store.Delete(ctx, superActor, "game_v1", ann.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		anns, err := store.List(ctx, "game_v1")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(anns) != 0 {
			t.Errorf("anns = %+v, want empty", anns)
		}
	})
}

func TestAnnounceListOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newAnnounceFixture(t)

	for _, title := range []string{"first", "second", "third"} {
		if _, err := store.Create(ctx, superActor, CreateParams{ModID: "game_v1", Title: title, Content: "c"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	anns, err := store.List(ctx, "game_v1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(anns) != 3 {
		t.Fatalf("len = %d", len(anns))
	}
	for i := 1; i < len(anns); i++ {
		if anns[i-1].Timestamp < anns[i].Timestamp {
			t.Errorf("list not newest-first at %d", i)
		}
	}
}

func TestAnnounceLegacyMigration(t *testing.T) {
	ctx := context.Background()
	store, raw := newAnnounceFixture(t)

	legacy := []Announcement{
		{ID: "a1", Title: "Old 1", Content: "c1", Timestamp: 100},
		{Title: "Old 2", Content: "c2", Timestamp: 200},
	}
	blob, err := json.Marshal(legacy)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := raw.Put(ctx, "legacy:ann:game_v1", string(blob)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	anns, err := store.List(ctx, "game_v1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(anns) != 2 {
		t.Fatalf("len = %d, want 2", len(anns))
	}
	for _, a := range anns {
		if a.ID == "" {
			t.Error("migrated record missing an id")
		}
		if a.ModID != "game_v1" {
			t.Errorf("modId = %q", a.ModID)
		}
		if a.ClientContent == "" {
			t.Error("migrated record missing clientContent fallback")
		}
	}

	if _, ok, _ := raw.Get(ctx, "legacy:ann:game_v1"); ok {
		t.Error("aggregate key should be gone after migration")
	}

	// Second list serves the per-id records without touching legacy state.
	again, err := store.List(ctx, "game_v1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(again) != 2 {
		t.Fatalf("second list len = %d", len(again))
	}
}
