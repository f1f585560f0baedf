package rbac

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPermission = errors.New("rbac: unknown permission")

// Permission is an atomic capability tag of the form "<resource>:<action>".
type Permission string

const (
	NewsCreate Permission = "news:create"
	NewsUpdate Permission = "news:update"
	NewsDelete Permission = "news:delete"

	EventsCreate Permission = "events:create"
	EventsUpdate Permission = "events:update"
	EventsDelete Permission = "events:delete"

	RegistryCreate Permission = "registry:create"
	RegistryUpdate Permission = "registry:update"
	RegistryDelete Permission = "registry:delete"

	InspectionsCreate Permission = "inspections:create"
	InspectionsUpdate Permission = "inspections:update"
	InspectionsDelete Permission = "inspections:delete"

	DisciplinaryCreate Permission = "disciplinary:create"
	DisciplinaryUpdate Permission = "disciplinary:update"
	DisciplinaryDelete Permission = "disciplinary:delete"

	PagesCreate Permission = "pages:create"
	PagesUpdate Permission = "pages:update"
	PagesDelete Permission = "pages:delete"

	MenuCreate Permission = "menu:create"
	MenuUpdate Permission = "menu:update"
	MenuDelete Permission = "menu:delete"

	FilesUpload Permission = "files:upload"
	FilesDelete Permission = "files:delete"

	UsersRead   Permission = "users:read"
	UsersCreate Permission = "users:create"
	UsersUpdate Permission = "users:update"
	UsersDelete Permission = "users:delete"

	SessionsRevoke Permission = "sessions:revoke"
	AuditRead      Permission = "audit:read"
	SettingsUpdate Permission = "settings:update"
)

var universe = []Permission{
	NewsCreate, NewsUpdate, NewsDelete,
	EventsCreate, EventsUpdate, EventsDelete,
	RegistryCreate, RegistryUpdate, RegistryDelete,
	InspectionsCreate, InspectionsUpdate, InspectionsDelete,
	DisciplinaryCreate, DisciplinaryUpdate, DisciplinaryDelete,
	PagesCreate, PagesUpdate, PagesDelete,
	MenuCreate, MenuUpdate, MenuDelete,
	FilesUpload, FilesDelete,
	UsersRead, UsersCreate, UsersUpdate, UsersDelete,
	SessionsRevoke,
	AuditRead,
	SettingsUpdate,
}

var known = NewSet(universe...)

func (p Permission) String() string { return string(p) }

// Resource returns the part before the colon.
func (p Permission) Resource() string {
	res, _, _ := strings.Cut(string(p), ":")
	return res
}

// Action returns the part after the colon.
func (p Permission) Action() string {
	_, act, _ := strings.Cut(string(p), ":")
	return act
}

// All returns the full permission universe in declaration order.
func All() []Permission {
	out := make([]Permission, len(universe))
	copy(out, universe)
	return out
}

// IsKnown reports whether p belongs to the permission universe.
func IsKnown(p Permission) bool {
	return known.Has(p)
}

func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	if !known.Has(p) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
	return p, nil
}

// ParsePermissions parses every entry and fails on the first unknown tag.
func ParsePermissions(raw []string) (Set, error) {
	out := make(Set, len(raw))
	for _, s := range raw {
		p, err := ParsePermission(s)
		if err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, nil
}
