package types

import "fmt"

// Role is the authorization level of an account.
//
// Roles are a flat set. What each role may do is decided by the capability
// table in internal/authz, not by any ordering between the values.
type Role string

// Supported roles.
const (
	// RoleMembers may list, view and search boards and tasks.
	RoleMembers Role = "Members"

	// RoleHashira may additionally create, edit, move and delete tasks.
	RoleHashira Role = "Hashira"

	// RoleBoss may additionally create and delete boards.
	RoleBoss Role = "Boss"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleMembers, RoleHashira, RoleBoss}

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMembers, RoleHashira, RoleBoss:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts s into a Role. Matching is exact: "boss" is rejected.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %q: must be one of %v", s, Roles)
	}
	return role, nil
}
