package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopmaster/store-system/internal/core/ports"
)

// ctxSession extracts the live session injected by the Session
// middleware. Its presence proves both Auth and Session ran; a handler
// reached without one is a routing mistake, answered with 401.
func ctxSession(c echo.Context) (ports.Session, error) {
	sess, ok := c.Get("session").(ports.Session)
	if !ok || sess == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return sess, nil
}
