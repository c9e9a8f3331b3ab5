package execute

import "github.com/google/uuid"

// Role selects which command registry a turn may reach.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	default:
		return "user"
	}
}

// ParseRole maps a wire-level role string to a Role. Anything that is not
// exactly "admin" is treated as the unprivileged user role.
func ParseRole(s string) Role {
	if s == "admin" {
		return RoleAdmin
	}
	return RoleUser
}

// ExecutionContext carries the immutable per-turn data every handler
// receives. The tenant id here is the only tenant id handlers ever see;
// tenant-like values inside a command block are ignored.
type ExecutionContext struct {
	TenantID uuid.UUID
	Role     Role
	DialogID uuid.UUID
}
