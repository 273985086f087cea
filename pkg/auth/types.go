package auth

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

var (
	// ErrDuplicateUsername is returned when a username is already taken
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUserNotFound is returned when no user has the requested id
	ErrUserNotFound = errors.New("user not found")
)

// User represents a staff member
type User struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Department   rbac.Department `json:"department"`
	Grants       rbac.GrantSet   `json:"grants"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HasPermission reports whether the user's current grant set contains the
// (permission, resource) pair.
func (u *User) HasPermission(resource rbac.ResourceType, permission rbac.PermissionType) bool {
	if u == nil {
		return false
	}
	return u.Grants.Has(permission, resource)
}

// NewUser holds the fields of a user to create
type NewUser struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	Department rbac.Department `json:"department"`
}

// UserPatch is a partial user update. Nil fields are left unchanged.
// Grants are not patchable: they follow Department.
type UserPatch struct {
	Name       *string          `json:"name,omitempty"`
	Email      *string          `json:"email,omitempty"`
	Username   *string          `json:"username,omitempty"`
	Password   *string          `json:"password,omitempty"`
	Department *rbac.Department `json:"department,omitempty"`

	UserImmutable
}

// UserImmutable lists user fields a patch body may carry but that an update
// never applies.
type UserImmutable struct {
	ID          json.RawMessage `json:"id,omitempty"`
	CreatedAt   json.RawMessage `json:"created_at,omitempty"`
	UpdatedAt   json.RawMessage `json:"updated_at,omitempty"`
	Grants      json.RawMessage `json:"grants,omitempty"`
	Permissions json.RawMessage `json:"permissions,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Username == nil && p.Password == nil && p.Department == nil
}
