package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopmaster/store-system/internal/api/metrics"
	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	sessions    ports.SessionManager
}

func NewAuthHandler(authService ports.AuthService, sessions ports.SessionManager) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions}
}

// Register creates a new account and immediately opens a session for
// it, routed by the selection policy, so a fresh signup lands in the
// app without a second login round trip.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account registration details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleStaff
	}

	account, err := h.authService.Register(c.Request().Context(), req.Name, req.Email, req.Secret, role)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case domain.ErrIdentityExists:
			status = http.StatusConflict
		case domain.ErrInvalidCredentials:
			status = http.StatusBadRequest
		}
		return c.JSON(status, errorResponse{Error: err.Error()})
	}

	sess, err := h.sessions.Begin(c.Request().Context(), *account)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to open session"})
	}

	token, err := h.authService.Token(account, sess.ID())
	if err != nil {
		h.sessions.End(sess.ID())
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to issue token"})
	}

	metrics.SessionsActive.Inc()
	return c.JSON(http.StatusCreated, toSessionResponse(sess, token))
}

// Login authenticates an account, opens a session routed by the
// selection policy, and returns a token bound to that session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	account, err := h.authService.Login(c.Request().Context(), req.Email, req.Secret)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	}

	sess, err := h.sessions.Begin(c.Request().Context(), *account)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to open session"})
	}

	token, err := h.authService.Token(account, sess.ID())
	if err != nil {
		h.sessions.End(sess.ID())
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to issue token"})
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.SessionsActive.Inc()
	return c.JSON(http.StatusOK, toSessionResponse(sess, token))
}
