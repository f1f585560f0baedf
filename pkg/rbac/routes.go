package rbac

import "fmt"

// RouteID names an operation that declares its own permission requirement.
type RouteID string

const (
	RouteLogin    RouteID = "auth.login"
	RouteRefresh  RouteID = "auth.refresh"
	RouteLogout   RouteID = "auth.logout"
	RouteProfile  RouteID = "auth.profile"
	RouteSessions RouteID = "auth.sessions"

	RouteUserCreate     RouteID = "users.create"
	RouteUserGet        RouteID = "users.get"
	RouteUserRoleUpdate RouteID = "users.role.update"
	RouteUserDeactivate RouteID = "users.deactivate"
	RouteUserRevoke     RouteID = "users.sessions.revoke"

	RouteNewsCreate RouteID = "news.create"
	RouteNewsUpdate RouteID = "news.update"
	RouteNewsDelete RouteID = "news.delete"

	RouteEventsCreate RouteID = "events.create"
	RouteEventsUpdate RouteID = "events.update"
	RouteEventsDelete RouteID = "events.delete"

	RouteRegistryCreate RouteID = "registry.create"
	RouteRegistryUpdate RouteID = "registry.update"
	RouteRegistryDelete RouteID = "registry.delete"

	RouteInspectionsCreate RouteID = "inspections.create"
	RouteInspectionsUpdate RouteID = "inspections.update"
	RouteInspectionsDelete RouteID = "inspections.delete"

	RouteDisciplinaryCreate RouteID = "disciplinary.create"
	RouteDisciplinaryUpdate RouteID = "disciplinary.update"
	RouteDisciplinaryDelete RouteID = "disciplinary.delete"

	RoutePagesCreate RouteID = "pages.create"
	RoutePagesUpdate RouteID = "pages.update"
	RoutePagesDelete RouteID = "pages.delete"

	RouteMenuCreate RouteID = "menu.create"
	RouteMenuUpdate RouteID = "menu.update"
	RouteMenuDelete RouteID = "menu.delete"

	RouteFilesUpload RouteID = "files.upload"
	RouteFilesDelete RouteID = "files.delete"

	RouteAuditList     RouteID = "audit.list"
	RouteSettingsWrite RouteID = "settings.update"
)

var routes = map[RouteID]Set{
	RouteLogin:    {},
	RouteRefresh:  {},
	RouteLogout:   {},
	RouteProfile:  {},
	RouteSessions: {},

	RouteUserCreate:     NewSet(UsersCreate),
	RouteUserGet:        NewSet(UsersRead),
	RouteUserRoleUpdate: NewSet(UsersUpdate),
	RouteUserDeactivate: NewSet(UsersDelete),
	RouteUserRevoke:     NewSet(SessionsRevoke),

	RouteNewsCreate: NewSet(NewsCreate),
	RouteNewsUpdate: NewSet(NewsUpdate),
	RouteNewsDelete: NewSet(NewsDelete),

	RouteEventsCreate: NewSet(EventsCreate),
	RouteEventsUpdate: NewSet(EventsUpdate),
	RouteEventsDelete: NewSet(EventsDelete),

	RouteRegistryCreate: NewSet(RegistryCreate),
	RouteRegistryUpdate: NewSet(RegistryUpdate),
	RouteRegistryDelete: NewSet(RegistryDelete),

	RouteInspectionsCreate: NewSet(InspectionsCreate),
	RouteInspectionsUpdate: NewSet(InspectionsUpdate),
	RouteInspectionsDelete: NewSet(InspectionsDelete),

	RouteDisciplinaryCreate: NewSet(DisciplinaryCreate),
	RouteDisciplinaryUpdate: NewSet(DisciplinaryUpdate),
	RouteDisciplinaryDelete: NewSet(DisciplinaryDelete),

	RoutePagesCreate: NewSet(PagesCreate),
	RoutePagesUpdate: NewSet(PagesUpdate),
	RoutePagesDelete: NewSet(PagesDelete),

	RouteMenuCreate: NewSet(MenuCreate),
	RouteMenuUpdate: NewSet(MenuUpdate),
	RouteMenuDelete: NewSet(MenuDelete),

	RouteFilesUpload: NewSet(FilesUpload),
	RouteFilesDelete: NewSet(FilesDelete),

	RouteAuditList:     NewSet(AuditRead),
	RouteSettingsWrite: NewSet(SettingsUpdate),
}

// Required returns the permissions a route declares. Public routes return an
// empty set; unknown ids report ok=false.
func Required(id RouteID) (Set, bool) {
	req, ok := routes[id]
	if !ok {
		return nil, false
	}
	return req.Clone(), true
}

// MustRequired panics on an unknown route id. It is meant for wiring time.
func MustRequired(id RouteID) Set {
	req, ok := Required(id)
	if !ok {
		panic(fmt.Sprintf("rbac: route %q has no declared permissions", id))
	}
	return req
}

// RouteIDs lists every declared route.
func RouteIDs() []RouteID {
	out := make([]RouteID, 0, len(routes))
	for id := range routes {
		out = append(out, id)
	}
	return out
}
