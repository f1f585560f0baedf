package rbac

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownRole = errors.New("rbac: unknown role")

// Role is a coarse-grained identity category determining a default permission set.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleModerator  Role = "MODERATOR"
	RoleEditor     Role = "EDITOR"
)

var roles = []Role{RoleSuperAdmin, RoleAdmin, RoleModerator, RoleEditor}

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	for _, v := range roles {
		if v == r {
			return true
		}
	}
	return false
}

// Roles returns every role, most privileged first.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}
