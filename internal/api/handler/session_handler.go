package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopmaster/store-system/internal/api/metrics"
	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// SessionHandler exposes the session state machine: inspection, store
// selection, provisioning, switching, and logout.
type SessionHandler struct {
	sessions ports.SessionManager
}

func NewSessionHandler(sessions ports.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get handles GET /v1/session.
//
// @Summary      Current session state
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess, ""))
}

// Stores handles GET /v1/session/stores: the selection list, each entry
// labeled with the role this identity would hold in it.
//
// @Summary      List accessible stores
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   storeAccessResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/session/stores [get]
func (h *SessionHandler) Stores(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	accesses, err := sess.AccessibleStores(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]storeAccessResponse, 0, len(accesses))
	for _, a := range accesses {
		resp = append(resp, toStoreAccessResponse(a))
	}
	return c.JSON(http.StatusOK, resp)
}

// Select handles POST /v1/session/store: binds one of the accessible
// stores to this session.
//
// @Summary      Select a store
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      selectStoreRequest  true  "Store to bind"
// @Success      200   {object}  sessionResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/session/store [post]
func (h *SessionHandler) Select(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req selectStoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	if err := sess.Select(c.Request().Context(), req.StoreID); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return c.JSON(http.StatusForbidden, errorResponse{Error: "not a member of this store"})
		}
		if errors.Is(err, domain.ErrStoreNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "store not found"})
		}
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess, ""))
}

// Provision handles POST /v1/stores: creates a new store owned by this
// identity and binds it. Only sessions in the provisioning state may
// create stores.
//
// @Summary      Provision a new store
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      provisionStoreRequest  true  "Store details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/stores [post]
func (h *SessionHandler) Provision(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req provisionStoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	if _, err := sess.Provision(c.Request().Context(), ports.ProvisionInput{
		DisplayName: req.DisplayName,
		BrandID:     req.BrandID,
		Country:     req.Country,
	}); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return c.JSON(http.StatusForbidden, errorResponse{Error: "session cannot provision a store"})
		}
		return err
	}

	brand := req.BrandID
	if brand == "" {
		brand = "custom"
	}
	metrics.StoresProvisionedTotal.WithLabelValues(brand).Inc()
	return c.JSON(http.StatusCreated, toSessionResponse(sess, ""))
}

// Switch handles POST /v1/session/switch: unbinds the active store and
// returns to the selection state, keeping the identity logged in.
//
// @Summary      Return to store selection
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Router       /v1/session/switch [post]
func (h *SessionHandler) Switch(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	sess.SwitchStore()
	return c.JSON(http.StatusOK, toSessionResponse(sess, ""))
}

// Logout handles POST /v1/session/logout: tears the session down. The
// token stops resolving immediately regardless of its expiry.
//
// @Summary      Logout
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      204  "session ended"
// @Router       /v1/session/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	h.sessions.End(sess.ID())
	metrics.SessionsActive.Dec()
	return c.NoContent(http.StatusNoContent)
}

// UpdateProfile handles PATCH /v1/profile: partial update of the
// account's display fields.
//
// @Summary      Update profile
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/profile [patch]
func (h *SessionHandler) UpdateProfile(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}

	account, err := sess.UpdateProfile(c.Request().Context(), domain.ProfilePatch{
		PhotoRef:        req.PhotoRef,
		DisplayCurrency: req.DisplayCurrency,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(*account))
}
