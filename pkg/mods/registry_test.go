package mods

import (
	"context"
	"testing"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
)

func ids(catalog []Mod) []string {
	out := make([]string, len(catalog))
	for i, m := range catalog {
		out[i] = m.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func seedCatalog(t *testing.T, r *Registry, modIDs ...string) {
	t.Helper()
	for _, id := range modIDs {
		if _, err := r.Create(context.Background(), id, ""); err != nil {
			t.Fatalf("seeding %q: %v", id, err)
		}
	}
}

func TestRegistryCreate(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(kv.NewMemoryStore())

	mod, err := r.Create(ctx, "game_v1", "Game")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if mod.ID != "game_v1" || mod.Name != "Game" {
		t.Errorf("mod = %+v", mod)
	}

	if _, err := r.Create(ctx, "game_v1", "Again"); !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("duplicate: %v", err)
	}
	if _, err := r.Create(ctx, "bad id!", ""); !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("bad charset: %v", err)
	}

	exists, err := r.Exists(ctx, "game_v1")
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}
}

func TestRegistryDelete(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(kv.NewMemoryStore())
	seedCatalog(t, r, "m1", "m2")

	if err := r.Delete(ctx, "missing"); !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("missing: %v", err)
	}
	if err := r.Delete(ctx, "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	catalog, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !equalIDs(ids(catalog), []string{"m2"}) {
		t.Errorf("catalog = %v", ids(catalog))
	}
}

func TestRegistryListKeepsOrder(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(kv.NewMemoryStore())
	seedCatalog(t, r, "zeta", "alpha", "mid")

	catalog, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !equalIDs(ids(catalog), []string{"zeta", "alpha", "mid"}) {
		t.Errorf("catalog = %v, want insertion order", ids(catalog))
	}
}

func TestRegistryReorder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		payload []string
		want    []string
	}{
		{
			name:    "full permutation",
			payload: []string{"m3", "m1", "m2"},
			want:    []string{"m3", "m1", "m2"},
		},
		{
			name:    "omitted entries append in prior relative order",
			payload: []string{"m2"},
			want:    []string{"m2", "m1", "m3"},
		},
		{
			name:    "unknown ids are ignored",
			payload: []string{"ghost", "m3"},
			want:    []string{"m3", "m1", "m2"},
		},
		{
			name:    "duplicates in the payload are ignored",
			payload: []string{"m2", "m2", "m1"},
			want:    []string{"m2", "m1", "m3"},
		},
		{
			name:    "empty payload keeps the catalog",
			payload: nil,
			want:    []string{"m1", "m2", "m3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(kv.NewMemoryStore())
			seedCatalog(t, r, "m1", "m2", "m3")

			catalog, err := r.Reorder(ctx, tt.payload)
			if err != nil {
				t.Fatalf("Reorder: %v", err)
			}
			if !equalIDs(ids(catalog), tt.want) {
				t.Errorf("Reorder(%v) = %v, want %v", tt.payload, ids(catalog), tt.want)
			}

			// The reorder is durable, not just the returned slice.
			persisted, err := r.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !equalIDs(ids(persisted), tt.want) {
				t.Errorf("persisted = %v, want %v", ids(persisted), tt.want)
			}
		})
	}
}
