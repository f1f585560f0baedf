package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/registry_portal/pkg/authz"
	"github.com/Skotchmaster/registry_portal/pkg/logging"
	"github.com/Skotchmaster/registry_portal/pkg/metrics"
	"github.com/Skotchmaster/registry_portal/pkg/rbac"
	"github.com/Skotchmaster/registry_portal/pkg/tokens"
)

const claimsKey = "auth.claims"

// Guard turns authz decisions into echo middleware.
type Guard struct {
	authz   *authz.Guard
	metrics *metrics.Metrics
}

func NewGuard(v authz.TokenVerifier, m *metrics.Metrics) *Guard {
	return &Guard{authz: authz.NewGuard(v), metrics: m}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Require protects a handler with the permissions declared for id.
// It panics if id has no declaration, so a route cannot be wired unprotected.
func (g *Guard) Require(id rbac.RouteID) echo.MiddlewareFunc {
	required := rbac.MustRequired(id)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return g.handle(c, next, id, g.authz.Authorize(BearerToken(c), required))
		}
	}
}

// RequireAuthenticated admits any valid token regardless of permissions.
func (g *Guard) RequireAuthenticated(id rbac.RouteID) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return g.handle(c, next, id, g.authz.Authenticate(BearerToken(c)))
		}
	}
}

func (g *Guard) handle(c echo.Context, next echo.HandlerFunc, id rbac.RouteID, d authz.Decision) error {
	g.metrics.Decision(string(id), d.Outcome.String())
	l := logging.FromContext(c.Request().Context()).With("route", string(id))

	switch d.Outcome {
	case authz.Allow:
		if d.Claims != nil {
			c.Set(claimsKey, d.Claims)
			l = l.With("user_id", d.Claims.Subject)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))
		}
		return next(c)
	case authz.Forbidden:
		l.Warn("access_denied", "status", http.StatusForbidden, "user_id", d.Claims.Subject, "role", d.Claims.Role)
		return echo.NewHTTPError(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		l.Warn("unauthenticated", "status", http.StatusUnauthorized, "error", d.Err)
		return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
}

// ClaimsFrom returns the claims stored by a passing guard, or nil.
func ClaimsFrom(c echo.Context) *tokens.AccessClaims {
	claims, _ := c.Get(claimsKey).(*tokens.AccessClaims)
	return claims
}
