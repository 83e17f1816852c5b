package auth

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/kv"
	"github.com/modboard/modboard/pkg/users"
)

// API keys live across three independent storage keys:
//
//	apikey:<id>          metadata (never the plaintext token)
//	apikeyhash:<digest>  digest -> id lookup, deleted on revoke
//	apikeyused:<id>      last-used timestamp, written by usage tracking
//
// The lookup record existing iff the key is active is what makes revoke
// effective against in-flight traffic, and the separate usage key is what
// keeps a concurrent usage write from clobbering a revoke: the two
// operations target disjoint keys, so neither can undo the other.
const (
	apiKeyMetaPrefix = "apikey:"
	apiKeyHashPrefix = "apikeyhash:"
	apiKeyUsedPrefix = "apikeyused:"
)

// KeyStatus is the API key state machine: active -> revoked, terminal.
type KeyStatus string

const (
	KeyStatusActive  KeyStatus = "active"
	KeyStatusRevoked KeyStatus = "revoked"
)

// APIKey is the stored metadata record. TokenDigest is kept so revoke can
// remove the lookup record; the plaintext token is never stored anywhere.
type APIKey struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AllowedMods []string  `json:"allowedMods"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   int64     `json:"createdAt"`
	Status      KeyStatus `json:"status"`
	RevokedAt   int64     `json:"revokedAt,omitempty"`
	RevokedBy   string    `json:"revokedBy,omitempty"`
	TokenDigest string    `json:"tokenDigest"`
}

// KeyInfo is the API-facing view of a key: metadata minus the digest,
// with the last-used timestamp merged in from its separate record.
type KeyInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AllowedMods []string  `json:"allowedMods"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   int64     `json:"createdAt"`
	Status      KeyStatus `json:"status"`
	RevokedAt   int64     `json:"revokedAt,omitempty"`
	RevokedBy   string    `json:"revokedBy,omitempty"`
	LastUsedAt  int64     `json:"lastUsedAt,omitempty"`
}

func (k *APIKey) info(lastUsedAt int64) KeyInfo {
	return KeyInfo{
		ID:          k.ID,
		Name:        k.Name,
		AllowedMods: k.AllowedMods,
		CreatedBy:   k.CreatedBy,
		CreatedAt:   k.CreatedAt,
		Status:      k.Status,
		RevokedAt:   k.RevokedAt,
		RevokedBy:   k.RevokedBy,
		LastUsedAt:  lastUsedAt,
	}
}

// APIKeys manages the lifecycle of long-lived automation credentials.
type APIKeys struct {
	kv kv.Store
}

// NewAPIKeys creates the API key manager.
func NewAPIKeys(store kv.Store) *APIKeys {
	return &APIKeys{kv: store}
}

func metaKey(id string) string { return apiKeyMetaPrefix + id }

func hashKey(digest string) string { return apiKeyHashPrefix + digest }

func usedKey(id string) string { return apiKeyUsedPrefix + id }

// Create mints a key bound to the given mods. Editors may only bind mods
// they can access themselves. Returns the metadata and the plaintext
// token; the plaintext is recoverable exactly once, here.
func (m *APIKeys) Create(ctx context.Context, actor users.View, name string, allowedMods []string) (KeyInfo, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return KeyInfo{}, "", errs.Validation("name is required")
	}
	if len(allowedMods) == 0 {
		return KeyInfo{}, "", errs.Validation("at least one mod is required")
	}
	for _, modID := range allowedMods {
		if !CanAccessMod(actor, modID) {
			return KeyInfo{}, "", errs.Newf(errs.KindForbidden, "no access to mod %q", modID)
		}
	}

	token, digest, err := NewAPIKeyToken()
	if err != nil {
		return KeyInfo{}, "", errs.Internal("generating api key token", err)
	}

	key := &APIKey{
		ID:          uuid.NewString(),
		Name:        name,
		AllowedMods: allowedMods,
		CreatedBy:   actor.Username,
		CreatedAt:   time.Now().UnixMilli(),
		Status:      KeyStatusActive,
		TokenDigest: digest,
	}

	if err := m.putMeta(ctx, key); err != nil {
		return KeyInfo{}, "", err
	}
	if err := m.kv.Put(ctx, hashKey(digest), key.ID); err != nil {
		return KeyInfo{}, "", errs.Internal("storing api key lookup", err)
	}

	return key.info(0), token, nil
}

// Authenticate resolves a raw token through the hash lookup and checks
// the key against the target mod. Unknown and revoked tokens fail
// identically; a known active key outside its allowlist is forbidden.
// The mod check is a literal allowlist match: automation credentials get
// no alias fuzzing.
func (m *APIKeys) Authenticate(ctx context.Context, rawToken, modID string) (*APIKey, error) {
	if rawToken == "" {
		return nil, errs.Unauthorized("missing api key")
	}

	id, ok, err := m.kv.Get(ctx, hashKey(DigestToken(rawToken)))
	if err != nil {
		return nil, errs.Internal("resolving api key", err)
	}
	if !ok {
		return nil, errs.Unauthorized("invalid api key")
	}

	key, ok, err := m.getMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || key.Status != KeyStatusActive {
		return nil, errs.Unauthorized("invalid api key")
	}

	allowed := false
	for _, mod := range key.AllowedMods {
		if mod == modID {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, errs.Newf(errs.KindForbidden, "api key has no access to mod %q", modID)
	}
	return key, nil
}

// Revoke ends a key permanently: metadata flips to revoked, then the
// hash-lookup record is deleted so the plaintext stops resolving even
// under concurrent traffic. There is no reactivation path.
func (m *APIKeys) Revoke(ctx context.Context, actor users.View, id string) (KeyInfo, error) {
	key, ok, err := m.getMeta(ctx, id)
	if err != nil {
		return KeyInfo{}, err
	}
	if !ok {
		return KeyInfo{}, errs.Validation("no such api key")
	}
	if !actor.IsRootAdmin && key.CreatedBy != actor.Username {
		return KeyInfo{}, errs.Forbidden("not your api key")
	}
	if key.Status == KeyStatusRevoked {
		return KeyInfo{}, errs.Conflict("api key is already revoked")
	}

	key.Status = KeyStatusRevoked
	key.RevokedAt = time.Now().UnixMilli()
	key.RevokedBy = actor.Username

	if err := m.putMeta(ctx, key); err != nil {
		return KeyInfo{}, err
	}
	if err := m.kv.Delete(ctx, hashKey(key.TokenDigest)); err != nil {
		return KeyInfo{}, errs.Internal("deleting api key lookup", err)
	}

	lastUsed, err := m.lastUsed(ctx, key.ID)
	if err != nil {
		return KeyInfo{}, err
	}
	return key.info(lastUsed), nil
}

// RecordUsage stamps the key's last-used record. It writes only the
// dedicated usage key, never the metadata record, so a usage write racing
// a revoke cannot resurrect the key.
func (m *APIKeys) RecordUsage(ctx context.Context, id string) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := m.kv.Put(ctx, usedKey(id), now); err != nil {
		return errs.Internal("recording api key usage", err)
	}
	return nil
}

// List returns keys visible to the actor: everything for the root admin,
// otherwise only keys the actor created. Newest first.
func (m *APIKeys) List(ctx context.Context, actor users.View) ([]KeyInfo, error) {
	it := m.kv.Scan(ctx, apiKeyMetaPrefix)

	out := make([]KeyInfo, 0)
	for it.Next(ctx) {
		raw, ok, err := m.kv.Get(ctx, it.Key())
		if err != nil {
			return nil, errs.Internal("loading api key", err)
		}
		if !ok {
			continue
		}
		var key APIKey
		if err := json.Unmarshal([]byte(raw), &key); err != nil {
			return nil, errs.Internal("decoding api key record", err)
		}
		if !actor.IsRootAdmin && key.CreatedBy != actor.Username {
			continue
		}
		lastUsed, err := m.lastUsed(ctx, key.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, key.info(lastUsed))
	}
	if err := it.Err(); err != nil {
		return nil, errs.Internal("scanning api keys", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *APIKeys) getMeta(ctx context.Context, id string) (*APIKey, bool, error) {
	raw, ok, err := m.kv.Get(ctx, metaKey(id))
	if err != nil {
		return nil, false, errs.Internal("loading api key", err)
	}
	if !ok {
		return nil, false, nil
	}
	var key APIKey
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return nil, false, errs.Internal("decoding api key record", err)
	}
	return &key, true, nil
}

func (m *APIKeys) putMeta(ctx context.Context, key *APIKey) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return errs.Internal("encoding api key record", err)
	}
	if err := m.kv.Put(ctx, metaKey(key.ID), string(raw)); err != nil {
		return errs.Internal("storing api key", err)
	}
	return nil
}

func (m *APIKeys) lastUsed(ctx context.Context, id string) (int64, error) {
	raw, ok, err := m.kv.Get(ctx, usedKey(id))
	if err != nil {
		return 0, errs.Internal("loading api key usage", err)
	}
	if !ok {
		return 0, nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return ts, nil
}
