package domain

import "fmt"

// Role is the closed set of per-client roles. Roles are always scoped to a
// single client; there are no cross-client roles.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// Permissions is the capability projection of a role. It is always derived
// from the role at read time and never persisted, so role and capabilities
// cannot drift apart.
type Permissions struct {
	CanView   bool `json:"can_view"`
	CanWrite  bool `json:"can_write"`
	CanManage bool `json:"can_manage"`
	IsOwner   bool `json:"is_owner"`
}

// ParseRole validates a wire-level role string against the closed enumeration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleViewer, RoleMember, RoleAdmin, RoleOwner:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the four enumerated roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Rank returns the position of r in the total order
// viewer(0) < member(1) < admin(2) < owner(3).
// Unknown roles rank below viewer so they never satisfy a minimum.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 0
	case RoleMember:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	}
	return -1
}

// Meets reports whether r satisfies the required minimum role.
func (r Role) Meets(required Role) bool {
	return r.Rank() >= required.Rank()
}

// Permissions returns the fixed capability table for r.
func (r Role) Permissions() Permissions {
	return Permissions{
		CanView:   r.Meets(RoleViewer),
		CanWrite:  r.Meets(RoleMember),
		CanManage: r.Meets(RoleAdmin),
		IsOwner:   r == RoleOwner,
	}
}
