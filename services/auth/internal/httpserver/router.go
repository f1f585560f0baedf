package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/registry_portal/pkg/logging"
	"github.com/Skotchmaster/registry_portal/pkg/metrics"
	middleware "github.com/Skotchmaster/registry_portal/pkg/middleware/auth"
	"github.com/Skotchmaster/registry_portal/pkg/ratelimit"
	"github.com/Skotchmaster/registry_portal/pkg/rbac"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	Guard        *middleware.Guard
	LoginLimiter ratelimit.Limiter
	Metrics      *metrics.Metrics
	Ready        func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	if e.Validator == nil {
		e.Validator = NewValidator()
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				logging.FromContext(c.Request().Context()).Error("not_ready", "error", err)
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	h := d.AuthHandler
	g := d.Guard
	auth := e.Group("/auth")

	login := []echo.MiddlewareFunc{g.Require(rbac.RouteLogin)}
	if d.LoginLimiter != nil {
		login = append(login, ratelimit.Middleware(d.LoginLimiter, ratelimit.ByIP))
	}
	auth.POST("/login", h.Login, login...)
	auth.POST("/refresh", h.Refresh, g.Require(rbac.RouteRefresh))
	auth.POST("/logout", h.Logout, g.Require(rbac.RouteLogout))
	auth.GET("/profile", h.Profile, g.Require(rbac.RouteProfile))
	auth.GET("/sessions", h.Sessions, g.RequireAuthenticated(rbac.RouteSessions))

	auth.POST("/users", h.CreateUser, g.Require(rbac.RouteUserCreate))
	auth.GET("/users/:id", h.GetUser, g.Require(rbac.RouteUserGet))
	auth.PATCH("/users/:id/role", h.ChangeRole, g.Require(rbac.RouteUserRoleUpdate))
	auth.POST("/users/:id/deactivate", h.Deactivate, g.Require(rbac.RouteUserDeactivate))
	auth.POST("/users/:id/sessions/revoke", h.RevokeSessions, g.Require(rbac.RouteUserRevoke))
}
