package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/registry_portal/services/auth/internal/service"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/transport"
)

const (
	reasonTokenExpired   = "token_expired"
	reasonSessionRevoked = "session_revoked"
	reasonInvalidToken   = "invalid_token"
)

func fail(code int, msg, reason string) *echo.HTTPError {
	return echo.NewHTTPError(code, transport.ErrorResponse{Error: msg, Reason: reason})
}

// refreshError keeps reuse indistinguishable from an unknown token.
func refreshError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrRefreshExpired):
		return fail(http.StatusUnauthorized, "unauthorized", reasonTokenExpired)
	case errors.Is(err, service.ErrTokenFamilyRevoked):
		return fail(http.StatusUnauthorized, "unauthorized", reasonSessionRevoked)
	case errors.Is(err, service.ErrReuseDetected), errors.Is(err, service.ErrInvalidRefreshToken):
		return fail(http.StatusUnauthorized, "unauthorized", reasonInvalidToken)
	default:
		return httpError(err)
	}
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fail(http.StatusBadRequest, "invalid request", "")
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), "")
	case errors.Is(err, service.ErrUnauthenticated):
		return fail(http.StatusUnauthorized, "unauthorized", "")
	case errors.Is(err, service.ErrForbidden):
		return fail(http.StatusForbidden, "forbidden", "")
	case errors.Is(err, service.ErrNotFound):
		return fail(http.StatusNotFound, "not found", "")
	case errors.Is(err, service.ErrConflict):
		return fail(http.StatusConflict, "already exists", "")
	default:
		return fail(http.StatusInternalServerError, "internal error", "")
	}
}
