package rbac

// The table is assembled once at init and only read afterwards.
var table map[Role]Set

func init() {
	table = map[Role]Set{
		RoleSuperAdmin: NewSet(universe...),
		RoleAdmin: NewSet(
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
		),
		RoleModerator: NewSet(
			NewsCreate, NewsUpdate, NewsDelete,
			EventsCreate, EventsUpdate, EventsDelete,
			PagesCreate, PagesUpdate, PagesDelete,
			MenuCreate, MenuUpdate, MenuDelete,
			RegistryCreate, RegistryUpdate,
			InspectionsCreate, InspectionsUpdate,
			DisciplinaryCreate, DisciplinaryUpdate,
			FilesUpload,
			UsersRead,
		),
		RoleEditor: NewSet(
			NewsCreate, NewsUpdate,
			EventsCreate, EventsUpdate,
			PagesUpdate,
			FilesUpload,
		),
	}
}

// PermissionsOf returns a copy of the role's permission set. Unknown roles
// get an empty set.
func PermissionsOf(role Role) Set {
	perms, ok := table[role]
	if !ok {
		return Set{}
	}
	return perms.Clone()
}

// HasAll is the single authority on whether a role satisfies a requirement.
// SUPER_ADMIN passes regardless of what is required, including tags that no
// role lists.
func HasAll(role Role, required Set) bool {
	if role == RoleSuperAdmin {
		return true
	}
	perms, ok := table[role]
	if !ok {
		return len(required) == 0
	}
	return required.SubsetOf(perms)
}

// HasAllWithGrants extends HasAll with per-user additive grants.
func HasAllWithGrants(role Role, grants, required Set) bool {
	if HasAll(role, required) {
		return true
	}
	if len(grants) == 0 {
		return false
	}
	perms := table[role]
	for p := range required {
		if perms.Has(p) || grants.Has(p) {
			continue
		}
		return false
	}
	return true
}

// Effective is the permission snapshot carried in access tokens.
func Effective(role Role, grants Set) Set {
	return PermissionsOf(role).Union(grants)
}
