package users

import (
	"github.com/modboard/modboard/pkg/errs"
	"github.com/modboard/modboard/pkg/password"
)

// Role is the closed set of administrator roles. Guests are represented
// by the absence of a session, not a role value.
type Role string

const (
	// RoleSuper has unrestricted access to every mod and admin surface.
	RoleSuper Role = "super"
	// RoleEditor is scoped to its allowed-mod list.
	RoleEditor Role = "editor"
)

// ParseRole validates a role string from an API boundary.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuper:
		return RoleSuper, nil
	case RoleEditor:
		return RoleEditor, nil
	default:
		return "", errs.Newf(errs.KindValidation, "invalid role: %q", s)
	}
}

// Status is the account status.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// ParseStatus validates a status string from an API boundary.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive:
		return StatusActive, nil
	case StatusDisabled:
		return StatusDisabled, nil
	default:
		return "", errs.Newf(errs.KindValidation, "invalid status: %q", s)
	}
}

// User is the durable per-username record, including digest material.
// It never leaves the service layer; API responses carry View instead.
type User struct {
	Username    string          `json:"username"`
	Role        Role            `json:"role"`
	Status      Status          `json:"status"`
	DisplayName string          `json:"displayName,omitempty"`
	AllowedMods []string        `json:"allowedMods,omitempty"`
	Password    password.Record `json:"password"`
	CreatedAt   int64           `json:"createdAt"`
}

// View is the sanitized user snapshot embedded in sessions and API
// responses. IsRootAdmin is derived from the root-admin marker, never
// stored on the user record.
type View struct {
	Username    string   `json:"username"`
	Role        Role     `json:"role"`
	Status      Status   `json:"status"`
	DisplayName string   `json:"displayName,omitempty"`
	AllowedMods []string `json:"allowedMods,omitempty"`
	IsRootAdmin bool     `json:"isRootAdmin"`
}

// View produces the sanitized snapshot of u.
func (u *User) View(isRootAdmin bool) View {
	mods := make([]string, len(u.AllowedMods))
	copy(mods, u.AllowedMods)
	return View{
		Username:    u.Username,
		Role:        u.Role,
		Status:      u.Status,
		DisplayName: u.DisplayName,
		AllowedMods: mods,
		IsRootAdmin: isRootAdmin,
	}
}

// DisplayNameOrUsername is the author attribution used on announcements.
func (v View) DisplayNameOrUsername() string {
	if v.DisplayName != "" {
		return v.DisplayName
	}
	return v.Username
}
