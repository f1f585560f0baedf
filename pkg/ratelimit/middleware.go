package ratelimit

import (
	"net/http"

	"github.com/Skotchmaster/registry_portal/pkg/logging"
	"github.com/labstack/echo/v4"
)

type KeyFunc func(c echo.Context) string

func ByIP(c echo.Context) string { return c.RealIP() }

// Middleware rejects with 429 once the limiter says no. Limiter errors fail
// open and are logged.
func Middleware(l Limiter, key KeyFunc) echo.MiddlewareFunc {
	if key == nil {
		key = ByIP
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ok, err := l.Allow(ctx, key(c))
			if err != nil {
				logging.FromContext(ctx).Error("rate_limit_unavailable", "error", err)
				return next(c)
			}
			if !ok {
				logging.FromContext(ctx).Warn("rate_limited", "status", http.StatusTooManyRequests)
				return echo.NewHTTPError(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
