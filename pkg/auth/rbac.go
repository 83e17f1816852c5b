package auth

import (
	"regexp"
	"strings"

	"github.com/modboard/modboard/pkg/users"
)

// minAliasLength drops alias keys too short to be meaningful; very short
// normalized forms collide by accident ("v1", "mod").
const minAliasLength = 6

var (
	versionSuffixPattern = regexp.MustCompile(`[-_]v\d+$`)
	modSuffixPattern     = regexp.MustCompile(`[-_]?mod$`)
	nonAlphanumPattern   = regexp.MustCompile(`[^a-z0-9]`)
)

// CanAccessMod reports whether a user may act within a mod. Supers are
// unrestricted. Editors match their allowlist literally first, then by
// normalized alias so differently-suffixed spellings of the same mod id
// still match ("game_v1" vs "game-mod" vs "games").
func CanAccessMod(user users.View, modID string) bool {
	if user.Role == users.RoleSuper {
		return true
	}
	if user.Role != users.RoleEditor {
		return false
	}

	for _, allowed := range user.AllowedMods {
		if allowed == modID {
			return true
		}
	}

	want := aliasKeys(modID)
	if len(want) == 0 {
		return false
	}
	for _, allowed := range user.AllowedMods {
		for key := range aliasKeys(allowed) {
			if _, ok := want[key]; ok {
				return true
			}
		}
	}
	return false
}

// aliasKeys produces the normalized alias forms of a mod id: lowercase,
// version suffix stripped (_v2 / -v2), trailing "mod" stripped (with an
// optional _ or - before it), non-alphanumerics removed, plus a singular
// form. Keys below the minimum length are discarded.
func aliasKeys(id string) map[string]struct{} {
	s := strings.ToLower(strings.TrimSpace(id))
	s = versionSuffixPattern.ReplaceAllString(s, "")
	s = modSuffixPattern.ReplaceAllString(s, "")
	compact := nonAlphanumPattern.ReplaceAllString(s, "")

	keys := make(map[string]struct{}, 2)
	if len(compact) >= minAliasLength {
		keys[compact] = struct{}{}
	}
	if len(compact) >= 4 && strings.HasSuffix(compact, "s") {
		singular := strings.TrimSuffix(compact, "s")
		if len(singular) >= minAliasLength {
			keys[singular] = struct{}{}
		}
	}
	return keys
}
