package auth

import (
	"testing"

	"github.com/modboard/modboard/pkg/users"
)

func TestCanAccessMod(t *testing.T) {
	tests := []struct {
		name string
		user users.View
		mod  string
		want bool
	}{
		{
			name: "super accesses anything",
			user: users.View{Role: users.RoleSuper},
			mod:  "whatever",
			want: true,
		},
		{
			name: "editor literal match",
			user: users.View{Role: users.RoleEditor, AllowedMods: []string{"game_v1"}},
			mod:  "game_v1",
			want: true,
		},
		{
			name: "editor literal mismatch with short alias",
			user: users.View{Role: users.RoleEditor, AllowedMods: []string{"game-mod"}},
			mod:  "game_v1",
			want: false,
		},
		{
			name: "alias matches across suffix spellings",
			user: users.View{Role: users.RoleEditor, AllowedMods: []string{"minecraft-mod"}},
			mod:  "minecraft_v2",
			want: true,
		},
		{
			name: "alias ignores case and separators",
			user: users.View{Role: users.RoleEditor, AllowedMods: []string{"Space-Station"}},
			mod:  "space_station_v3",
			want: true,
		},
		{
			name: "singular form matches plural allowlist entry",
			user: users.View{Role: users.RoleEditor, AllowedMods: []string{"announcements"}},
			mod:  "announcement_v2",
			want: true,
		},
		{
			name: "unrelated mods do not match",
			user: users.View{Role: users.RoleEditor, AllowedMods: []string{"minecraft-mod"}},
			mod:  "factorio_v1",
			want: false,
		},
		{
			name: "editor with empty allowlist",
			user: users.View{Role: users.RoleEditor},
			mod:  "minecraft",
			want: false,
		},
		{
			name: "unknown role never matches",
			user: users.View{Role: "viewer", AllowedMods: []string{"minecraft"}},
			mod:  "minecraft",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccessMod(tt.user, tt.mod); got != tt.want {
				t.Errorf("CanAccessMod(%v, %q) = %v, want %v", tt.user.AllowedMods, tt.mod, got, tt.want)
			}
		})
	}
}

func TestAliasKeys(t *testing.T) {
	tests := []struct {
		id   string
		want []string
	}{
		{"minecraft_v2", []string{"minecraft"}},
		{"minecraft-mod", []string{"minecraft"}},
		{"game_v1", nil},
		{"announcements", []string{"announcements", "announcement"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := aliasKeys(tt.id)
			if len(got) != len(tt.want) {
				t.Fatalf("aliasKeys(%q) = %v, want %v", tt.id, got, tt.want)
			}
			for _, k := range tt.want {
				if _, ok := got[k]; !ok {
					t.Errorf("aliasKeys(%q) missing %q", tt.id, k)
				}
			}
		})
	}
}
