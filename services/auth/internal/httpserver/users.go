package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/registry_portal/pkg/logging"
	middleware "github.com/Skotchmaster/registry_portal/pkg/middleware/auth"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/service"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/transport"
)

// actorAndTarget reads the caller from the guard and the :id path param.
func actorAndTarget(c echo.Context) (service.Actor, uuid.UUID, error) {
	actor, err := service.ActorFromClaims(middleware.ClaimsFrom(c))
	if err != nil {
		return service.Actor{}, uuid.Nil, httpError(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return service.Actor{}, uuid.Nil, fail(http.StatusBadRequest, "invalid id", "")
	}
	return actor, id, nil
}

func (h *AuthHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := service.ActorFromClaims(middleware.ClaimsFrom(c))
	if err != nil {
		return httpError(err)
	}

	var req transport.CreateUserRequest
	if err := bindValid(c, &req); err != nil {
		logging.FromContext(ctx).Warn("create_user_error", "status", 400, "error", err)
		return fail(http.StatusBadRequest, "invalid body", "")
	}

	u, err := h.Svc.CreateUser(ctx, actor, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *AuthHTTP) GetUser(c echo.Context) error {
	_, id, err := actorAndTarget(c)
	if err != nil {
		return err
	}
	u, err := h.Svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHTTP) ChangeRole(c echo.Context) error {
	ctx := c.Request().Context()
	actor, id, err := actorAndTarget(c)
	if err != nil {
		return err
	}

	var req transport.ChangeRoleRequest
	if err := bindValid(c, &req); err != nil {
		logging.FromContext(ctx).Warn("change_role_error", "status", 400, "error", err)
		return fail(http.StatusBadRequest, "invalid body", "")
	}

	u, err := h.Svc.ChangeRole(ctx, actor, id, req.Role, req.Permissions)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHTTP) Deactivate(c echo.Context) error {
	actor, id, err := actorAndTarget(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Deactivate(c.Request().Context(), actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) RevokeSessions(c echo.Context) error {
	ctx := c.Request().Context()
	actor, id, err := actorAndTarget(c)
	if err != nil {
		return err
	}

	var req transport.RevokeSessionsRequest
	if err := bindValid(c, &req); err != nil {
		logging.FromContext(ctx).Warn("revoke_sessions_error", "status", 400, "error", err)
		return fail(http.StatusBadRequest, "invalid body", "")
	}
	family := uuid.Nil
	if req.FamilyID != "" {
		if family, err = uuid.Parse(req.FamilyID); err != nil {
			return fail(http.StatusBadRequest, "invalid family id", "")
		}
	}

	n, err := h.Svc.Revoke(ctx, actor, id, family)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}
