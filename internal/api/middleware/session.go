package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopmaster/store-system/internal/core/ports"
)

// Session resolves the live session named by the token's sid claim and
// injects it into context. A token whose session no longer exists (for
// example after a server restart) is rejected with 401 so the client
// re-authenticates.
func Session(mgr ports.SessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid, _ := c.Get("session_id").(string)
			if sid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing session identity")
			}

			sess, err := mgr.Get(sid)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
			}

			c.Set("session", sess)
			return next(c)
		}
	}
}
