// Package announce stores per-mod announcement records under composite
// keys, including the one-time migration of legacy aggregate records.
package announce

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modboard/modboard/pkg/auth"
	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/mods"
	"github.com/modboard/modboard/pkg/users"
)

const (
	annKeyPrefix    = "ann:"
	legacyKeyPrefix = "legacy:ann:"
)

// Announcement is one content record. Content carries the HTML body;
// ClientContent is the secondary plain representation automated clients
// consume, defaulting to the HTML when not supplied separately.
type Announcement struct {
	ID            string `json:"id"`
	ModID         string `json:"modId"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	ClientContent string `json:"clientContent"`
	Version       string `json:"version,omitempty"`
	Author        string `json:"author"`
	Timestamp     int64  `json:"timestamp"`
}

// Store manages announcement records.
type Store struct {
	kv       kv.Store
	registry *mods.Registry
}

// NewStore creates the announcement store.
func NewStore(store kv.Store, registry *mods.Registry) *Store {
	return &Store{kv: store, registry: registry}
}

func annPrefix(modID string) string { return annKeyPrefix + modID + ":" }

func annKey(modID, id string) string { return annPrefix(modID) + id }

func legacyKey(modID string) string { return legacyKeyPrefix + modID }

// List returns every announcement in a mod's namespace, newest first. On
// first access it transparently fans a legacy aggregate record out into
// per-id records and deletes the aggregate key; later lists find the
// per-id records and do no migration work.
func (s *Store) List(ctx context.Context, modID string) ([]Announcement, error) {
	out, err := s.scan(ctx, modID)
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		migrated, err := s.migrateLegacy(ctx, modID)
		if err != nil {
			return nil, err
		}
		out = migrated
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// CreateParams are the inputs for a new announcement.
type CreateParams struct {
	ModID   string
	Title   string
	Content string
	// ClientContent falls back to Content when empty.
	ClientContent string
	Version       string
}

// Create stamps and persists a new record. The actor needs mod access;
// the mod must exist in the registry.
func (s *Store) Create(ctx context.Context, actor users.View, p CreateParams) (Announcement, error) {
	if p.Title == "" {
		return Announcement{}, errs.Validation("title is required")
	}
	if p.Content == "" {
		return Announcement{}, errs.Validation("content is required")
	}
	if !auth.CanAccessMod(actor, p.ModID) {
		return Announcement{}, errs.Newf(errs.KindForbidden, "no access to mod %q", p.ModID)
	}

	exists, err := s.registry.Exists(ctx, p.ModID)
	if err != nil {
		return Announcement{}, err
	}
	if !exists {
		return Announcement{}, errs.Validation("no such mod")
	}

	clientContent := p.ClientContent
	if clientContent == "" {
		clientContent = p.Content
	}

	a := Announcement{
		ID:            uuid.NewString(),
		ModID:         p.ModID,
		Title:         p.Title,
		Content:       p.Content,
		ClientContent: clientContent,
		Version:       strings.TrimSpace(p.Version),
		Author:        actor.DisplayNameOrUsername(),
		Timestamp:     time.Now().UnixMilli(),
	}
	if err := s.put(ctx, &a); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

// UpdateParams are the inputs for editing an existing announcement.
// Version distinguishes three states: nil leaves the tag unchanged, an
// explicit empty string clears it, and a non-empty string replaces it.
type UpdateParams struct {
	ModID         string
	ID            string
	Title         string
	Content       string
	ClientContent string
	Version       *string
}

// Update edits a record in place. The record must already exist under the
// composite key and the actor needs mod access.
func (s *Store) Update(ctx context.Context, actor users.View, p UpdateParams) (Announcement, error) {
	if p.Title == "" {
		return Announcement{}, errs.Validation("title is required")
	}
	if p.Content == "" {
		return Announcement{}, errs.Validation("content is required")
	}
	if !auth.CanAccessMod(actor, p.ModID) {
		return Announcement{}, errs.Newf(errs.KindForbidden, "no access to mod %q", p.ModID)
	}

	existing, ok, err := s.get(ctx, p.ModID, p.ID)
	if err != nil {
		return Announcement{}, err
	}
	if !ok {
		return Announcement{}, errs.Validation("no such announcement")
	}

	existing.Title = p.Title
	existing.Content = p.Content
	if p.ClientContent != "" {
		existing.ClientContent = p.ClientContent
	} else {
		existing.ClientContent = p.Content
	}
	if p.Version != nil {
		existing.Version = strings.TrimSpace(*p.Version)
	}

	if err := s.put(ctx, existing); err != nil {
		return Announcement{}, err
	}
	return *existing, nil
}

// Delete removes a record. Stricter than create/update: Supers only,
// Editors with mod access may write but never delete.
func (s *Store) Delete(ctx context.Context, actor users.View, modID, id string) error {
	if actor.Role != users.RoleSuper {
		return errs.Forbidden("only admins may delete announcements")
	}

	_, ok, err := s.get(ctx, modID, id)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Validation("no such announcement")
	}
	if err := s.kv.Delete(ctx, annKey(modID, id)); err != nil {
		return errs.Internal("deleting announcement", err)
	}
	return nil
}

func (s *Store) scan(ctx context.Context, modID string) ([]Announcement, error) {
	it := s.kv.Scan(ctx, annPrefix(modID))

	out := make([]Announcement, 0)
	for it.Next(ctx) {
		raw, ok, err := s.kv.Get(ctx, it.Key())
		if err != nil {
			return nil, errs.Internal("loading announcement", err)
		}
		if !ok {
			continue
		}
		var a Announcement
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, errs.Internal("decoding announcement record", err)
		}
		out = append(out, a)
	}
	if err := it.Err(); err != nil {
		return nil, errs.Internal("scanning announcements", err)
	}
	return out, nil
}

// migrateLegacy fans a deprecated aggregate record (one key holding the
// whole array) out into per-id records, then deletes the aggregate key.
func (s *Store) migrateLegacy(ctx context.Context, modID string) ([]Announcement, error) {
	raw, ok, err := s.kv.Get(ctx, legacyKey(modID))
	if err != nil {
		return nil, errs.Internal("loading legacy announcements", err)
	}
	if !ok {
		return []Announcement{}, nil
	}

	var legacy []Announcement
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return nil, errs.Internal("decoding legacy announcement record", err)
	}

	out := make([]Announcement, 0, len(legacy))
	for _, a := range legacy {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.ModID = modID
		if a.ClientContent == "" {
			a.ClientContent = a.Content
		}
		if err := s.put(ctx, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	if err := s.kv.Delete(ctx, legacyKey(modID)); err != nil {
		return nil, errs.Internal("deleting legacy announcement record", err)
	}
	return out, nil
}

func (s *Store) get(ctx context.Context, modID, id string) (*Announcement, bool, error) {
	raw, ok, err := s.kv.Get(ctx, annKey(modID, id))
	if err != nil {
		return nil, false, errs.Internal("loading announcement", err)
	}
	if !ok {
		return nil, false, nil
	}
	var a Announcement
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, false, errs.Internal("decoding announcement record", err)
	}
	return &a, true, nil
}

func (s *Store) put(ctx context.Context, a *Announcement) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return errs.Internal("encoding announcement record", err)
	}
	if err := s.kv.Put(ctx, annKey(a.ModID, a.ID), string(raw)); err != nil {
		return errs.Internal("storing announcement", err)
	}
	return nil
}
