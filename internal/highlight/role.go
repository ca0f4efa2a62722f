package highlight

import "fmt"

// Role is the visual role of a node or key in one step.
type Role uint8

const (
	RoleNone Role = iota
	RoleSearchActive
	RoleInsertActive
	RoleDeleteActive
	RoleBatchActive
	RoleOverflow
	RoleFound
	RoleDeleteTarget
	RoleFinalResult
	RoleMedian
	RoleRangeMatch
	RoleGhost

	numRoles
)

var roleNames = [numRoles]string{
	RoleNone:         "none",
	RoleSearchActive: "search-active",
	RoleInsertActive: "insert-active",
	RoleDeleteActive: "delete-active",
	RoleBatchActive:  "batch-active",
	RoleOverflow:     "overflow",
	RoleFound:        "found",
	RoleDeleteTarget: "delete-target",
	RoleFinalResult:  "final-result",
	RoleMedian:       "median",
	RoleRangeMatch:   "range-match",
	RoleGhost:        "ghost",
}

// String returns the kebab-case name used as a CSS class suffix.
func (r Role) String() string {
	if r >= numRoles {
		return fmt.Sprintf("role(%d)", uint8(r))
	}
	return roleNames[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	for i, name := range roleNames {
		if name == string(text) {
			*r = Role(i)
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", text)
}

// Roles returns every role in declaration order.
func Roles() []Role {
	roles := make([]Role, numRoles)
	for i := range roles {
		roles[i] = Role(i)
	}
	return roles
}
