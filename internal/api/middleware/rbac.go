package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// RequireRole restricts a route to sessions holding one of the allowed
// roles. Must run after Session, so the resolved session carries the
// role computed for the bound store.
func RequireRole(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := c.Get("session").(ports.Session)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "session missing")
			}
			if _, ok := allowed[sess.Role()]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
