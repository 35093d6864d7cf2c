package types

import "strings"

// Role is a workspace membership role.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleViewer    Role = "viewer"
)

// Level returns the ordinal of the role; unknown roles are 0.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleDeveloper:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.Level() > 0
}

// Satisfies reports whether r meets the required threshold.
func (r Role) Satisfies(required Role) bool {
	return r.Valid() && required.Valid() && r.Level() >= required.Level()
}

func (r Role) String() string {
	return string(r)
}

// ParseRole normalizes case and whitespace. ok is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// AllRoles in descending order.
var AllRoles = []Role{RoleAdmin, RoleDeveloper, RoleViewer}
