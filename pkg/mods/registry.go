// Package mods maintains the ordered catalog of content partitions.
// The catalog is stored as a single ordered list; order is the list
// itself, not a per-entry field, which is what lets reorder fall back
// gracefully on stale payloads.
package mods

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
)

const catalogKey = "mods:catalog"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Mod is one catalog entry.
type Mod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry manages the mod catalog.
type Registry struct {
	kv kv.Store
}

// NewRegistry creates the registry over the given store.
func NewRegistry(store kv.Store) *Registry {
	return &Registry{kv: store}
}

// List returns the catalog in stored order.
func (r *Registry) List(ctx context.Context) ([]Mod, error) {
	return r.load(ctx)
}

// Exists reports whether a mod id is in the catalog.
func (r *Registry) Exists(ctx context.Context, id string) (bool, error) {
	catalog, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range catalog {
		if m.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Create appends a mod. The id is an immutable slug with a restricted
// charset; duplicates conflict.
func (r *Registry) Create(ctx context.Context, id, name string) (Mod, error) {
	if !idPattern.MatchString(id) {
		return Mod{}, errs.Validation("mod id must match [A-Za-z0-9_-]+")
	}
	if name == "" {
		return Mod{}, errs.Validation("name is required")
	}

	catalog, err := r.load(ctx)
	if err != nil {
		return Mod{}, err
	}
	for _, m := range catalog {
		if m.ID == id {
			return Mod{}, errs.Conflict("mod id already exists")
		}
	}

	mod := Mod{ID: id, Name: name}
	if err := r.save(ctx, append(catalog, mod)); err != nil {
		return Mod{}, err
	}
	return mod, nil
}

// Delete removes a mod from the catalog. Allowlist references held by
// users are intentionally left untouched.
func (r *Registry) Delete(ctx context.Context, id string) error {
	catalog, err := r.load(ctx)
	if err != nil {
		return err
	}

	next := make([]Mod, 0, len(catalog))
	found := false
	for _, m := range catalog {
		if m.ID == id {
			found = true
			continue
		}
		next = append(next, m)
	}
	if !found {
		return errs.Validation("no such mod")
	}
	return r.save(ctx, next)
}

// Reorder rewrites the catalog order to the given id sequence. Ids not in
// the catalog are ignored; catalog entries missing from the sequence are
// appended afterward in their prior relative order, so a stale client
// payload can never drop an entry.
func (r *Registry) Reorder(ctx context.Context, orderedIDs []string) ([]Mod, error) {
	catalog, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Mod, len(catalog))
	for _, m := range catalog {
		byID[m.ID] = m
	}

	next := make([]Mod, 0, len(catalog))
	placed := make(map[string]bool, len(catalog))
	for _, id := range orderedIDs {
		m, ok := byID[id]
		if !ok || placed[id] {
			continue
		}
		next = append(next, m)
		placed[id] = true
	}
	for _, m := range catalog {
		if !placed[m.ID] {
			next = append(next, m)
		}
	}

	if err := r.save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (r *Registry) load(ctx context.Context) ([]Mod, error) {
	raw, ok, err := r.kv.Get(ctx, catalogKey)
	if err != nil {
		return nil, errs.Internal("loading mod catalog", err)
	}
	if !ok {
		return []Mod{}, nil
	}
	var catalog []Mod
	if err := json.Unmarshal([]byte(raw), &catalog); err != nil {
		return nil, errs.Internal("decoding mod catalog", err)
	}
	return catalog, nil
}

func (r *Registry) save(ctx context.Context, catalog []Mod) error {
	raw, err := json.Marshal(catalog)
	if err != nil {
		return errs.Internal("encoding mod catalog", err)
	}
	if err := r.kv.Put(ctx, catalogKey, string(raw)); err != nil {
		return errs.Internal("storing mod catalog", err)
	}
	return nil
}
