package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/registry_portal/pkg/logging"
	middleware "github.com/Skotchmaster/registry_portal/pkg/middleware/auth"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/service"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func metaOf(c echo.Context) service.Meta {
	return service.Meta{UserAgent: c.Request().UserAgent(), IP: c.RealIP()}
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return fail(http.StatusBadRequest, "invalid body", "")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password, metaOf(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.LoginResponse{
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.AccessExp.Unix(),
		User:         res.User,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return fail(http.StatusBadRequest, "invalid body", "")
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken, metaOf(c))
	if err != nil {
		return refreshError(err)
	}

	return c.JSON(http.StatusOK, transport.RefreshResponse{
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.AccessExp.Unix(),
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.LogoutRequest
	if err := bindValid(c, &req); err != nil {
		logging.FromContext(ctx).Warn("logout_error", "status", 400, "error", err)
		return fail(http.StatusBadRequest, "invalid body", "")
	}
	if err := h.Svc.Logout(ctx, req.RefreshToken); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Profile(c echo.Context) error {
	view, err := h.Svc.Profile(middleware.BearerToken(c))
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("profile_unauthenticated", "status", 401, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *AuthHTTP) Sessions(c echo.Context) error {
	actor, err := service.ActorFromClaims(middleware.ClaimsFrom(c))
	if err != nil {
		return httpError(err)
	}
	out, err := h.Svc.Sessions(c.Request().Context(), actor.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}
