package rbac

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownDepartment is returned when a department name is not one of the
// three known departments.
var ErrUnknownDepartment = errors.New("unknown department")

// Department is the organizational unit of a user. It determines the user's
// grant set.
type Department string

const (
	DepartmentCommercial Department = "COMMERCIAL"
	DepartmentSupport    Department = "SUPPORT"
	DepartmentGestion    Department = "GESTION"
)

// Departments returns every department in display order.
func Departments() []Department {
	return []Department{DepartmentCommercial, DepartmentSupport, DepartmentGestion}
}

// Valid reports whether d is one of the known departments.
func (d Department) Valid() bool {
	switch d {
	case DepartmentCommercial, DepartmentSupport, DepartmentGestion:
		return true
	}
	return false
}

// Label returns the French display name of the department.
func (d Department) Label() string {
	switch d {
	case DepartmentCommercial:
		return "Département commercial"
	case DepartmentSupport:
		return "Département support"
	case DepartmentGestion:
		return "Département gestion"
	}
	return string(d)
}

// ParseDepartment accepts a department name in any case, or its French label.
func ParseDepartment(s string) (Department, error) {
	s = strings.TrimSpace(s)
	for _, d := range Departments() {
		if strings.EqualFold(s, string(d)) || strings.EqualFold(s, d.Label()) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDepartment, s)
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Department) UnmarshalText(text []byte) error {
	parsed, err := ParseDepartment(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PermissionType is the action half of a grant.
type PermissionType string

const (
	PermissionCreate PermissionType = "create"
	PermissionRead   PermissionType = "read"
	PermissionUpdate PermissionType = "update"
	PermissionDelete PermissionType = "delete"
)

// PermissionTypes returns every permission type.
func PermissionTypes() []PermissionType {
	return []PermissionType{PermissionCreate, PermissionRead, PermissionUpdate, PermissionDelete}
}

// ResourceType is the resource half of a grant.
type ResourceType string

const (
	ResourceClient   ResourceType = "client"
	ResourceContract ResourceType = "contract"
	ResourceEvent    ResourceType = "event"
	ResourceUser     ResourceType = "user"
)

// ResourceTypes returns every resource type.
func ResourceTypes() []ResourceType {
	return []ResourceType{ResourceClient, ResourceContract, ResourceEvent, ResourceUser}
}

// Grant is one (permission type, resource type) pair a user may exercise.
type Grant struct {
	Permission PermissionType `json:"permission_type"`
	Resource   ResourceType   `json:"resource_type"`
}

// String returns a string representation of the grant, e.g. "CREATE:CLIENT"
func (g Grant) String() string {
	return strings.ToUpper(string(g.Permission) + ":" + string(g.Resource))
}

// GrantSet is an unordered set of grants.
type GrantSet map[Grant]struct{}

// NewGrantSet builds a set from grants, dropping duplicates.
func NewGrantSet(grants ...Grant) GrantSet {
	s := make(GrantSet, len(grants))
	for _, g := range grants {
		s[g] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the (permission, resource) pair.
func (s GrantSet) Has(permission PermissionType, resource ResourceType) bool {
	_, ok := s[Grant{Permission: permission, Resource: resource}]
	return ok
}

// Equal reports whether both sets hold the same grants.
func (s GrantSet) Equal(other GrantSet) bool {
	if len(s) != len(other) {
		return false
	}
	for g := range s {
		if _, ok := other[g]; !ok {
			return false
		}
	}
	return true
}

// Minus returns the grants of s that are not in other.
func (s GrantSet) Minus(other GrantSet) GrantSet {
	out := make(GrantSet)
	for g := range s {
		if _, ok := other[g]; !ok {
			out[g] = struct{}{}
		}
	}
	return out
}

// Sorted returns the grants ordered by resource then permission.
func (s GrantSet) Sorted() []Grant {
	out := make([]Grant, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Permission < out[j].Permission
	})
	return out
}

// Strings returns the sorted grants in "CREATE:CLIENT" form.
func (s GrantSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, g := range sorted {
		out[i] = g.String()
	}
	return out
}

// MarshalJSON renders the set as a sorted list of "CREATE:CLIENT" strings.
func (s GrantSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// Permission is a persisted row of the global permission catalog.
type Permission struct {
	ID    int64 `json:"id"`
	Grant Grant `json:"grant"`
}
