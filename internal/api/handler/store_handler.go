package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shopmaster/store-system/internal/api/metrics"
	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
	"github.com/shopmaster/store-system/internal/core/service"
)

// StoreHandler exposes operations against the session's bound store:
// catalog, cart, checkout, day-end, and membership. Mutations outside
// an active binding (or owner-only mutations by non-owners) are silent
// no-ops in the core; the handlers simply report the resulting state.
type StoreHandler struct {
	currencies      ports.CurrencyProvider
	onlineThreshold time.Duration
}

func NewStoreHandler(currencies ports.CurrencyProvider, onlineThreshold time.Duration) *StoreHandler {
	if onlineThreshold <= 0 {
		onlineThreshold = service.DefaultOnlineThreshold
	}
	return &StoreHandler{currencies: currencies, onlineThreshold: onlineThreshold}
}

// Get handles GET /v1/store: the latest snapshot of the bound store,
// with each member's online flag computed from their last heartbeat.
//
// @Summary      Get the active store
// @Tags         store
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  getStoreResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/store [get]
func (h *StoreHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	store, err := sess.ActiveStore(c.Request().Context())
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "no active store"})
		}
		return err
	}

	now := time.Now().UTC()
	presence := make([]presenceEntryResponse, 0, len(store.Config.Presence))
	for _, rec := range store.Config.Presence {
		presence = append(presence, presenceEntryResponse{
			Name:       rec.Name,
			Email:      rec.Email,
			Role:       string(rec.Role),
			LastActive: rec.LastActive,
			Online:     service.IsOnline(rec, now, h.onlineThreshold),
		})
	}

	return c.JSON(http.StatusOK, getStoreResponse{
		Store:    *store,
		Presence: presence,
		Display:  h.displayPricing(sess.Identity(), store),
	})
}

// displayPricing converts priced catalog items into the viewer's
// display currency. Nil when no display currency is set or it already
// matches the store's native unit.
func (h *StoreHandler) displayPricing(viewer domain.Identity, store *domain.Store) *displayPricingResponse {
	if h.currencies == nil || viewer.DisplayCurrency == "" {
		return nil
	}
	if h.currencies.Country(store.Config.Country).Currency == viewer.DisplayCurrency {
		return nil
	}

	_, symbol := h.currencies.Convert(0, store.Config.Country, viewer.DisplayCurrency)
	out := &displayPricingResponse{
		Currency: viewer.DisplayCurrency,
		Symbol:   symbol,
		Prices:   make(map[string]float64, len(store.Catalog)),
	}
	for _, item := range store.Catalog {
		if item.Price == nil {
			continue
		}
		value, _ := h.currencies.Convert(*item.Price, store.Config.Country, viewer.DisplayCurrency)
		out.Prices[item.ID] = value
	}
	return out
}

// AddItem handles POST /v1/store/items: prepends an unpriced catalog
// entry. Owner only.
//
// @Summary      Add a catalog item
// @Tags         store
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addItemRequest  true  "Item details"
// @Success      200   {object}  getStoreResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/store/items [post]
func (h *StoreHandler) AddItem(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	if err := sess.AddCatalogItem(c.Request().Context(), ports.AddItemInput{
		Name:     req.Name,
		Category: req.Category,
		ImageRef: req.ImageRef,
	}); err != nil {
		return err
	}
	return h.Get(c)
}

// SetPrice handles PUT /v1/store/items/:id/price.
//
// @Summary      Set an item price
// @Tags         store
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Catalog item id"
// @Param        body  body      setPriceRequest  true  "New price"
// @Success      200   {object}  getStoreResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/store/items/{id}/price [put]
func (h *StoreHandler) SetPrice(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req setPriceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	if err := sess.SetPrice(c.Request().Context(), c.Param("id"), req.Price); err != nil {
		return err
	}
	return h.Get(c)
}

// Cart handles GET /v1/store/cart.
//
// @Summary      Get the cart
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  cartResponse
// @Router       /v1/store/cart [get]
func (h *StoreHandler) Cart(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(sess.Cart()))
}

// AddToCart handles POST /v1/store/cart/items.
//
// @Summary      Add an item to the cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addToCartRequest  true  "Item and quantity"
// @Success      200   {object}  cartResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/store/cart/items [post]
func (h *StoreHandler) AddToCart(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req addToCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	if err := sess.AddToCart(c.Request().Context(), req.ItemID, req.Quantity); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(sess.Cart()))
}

// RemoveFromCart handles DELETE /v1/store/cart/items/:id.
//
// @Summary      Remove an item from the cart
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Catalog item id"
// @Success      200  {object}  cartResponse
// @Router       /v1/store/cart/items/{id} [delete]
func (h *StoreHandler) RemoveFromCart(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	sess.RemoveFromCart(c.Param("id"))
	return c.JSON(http.StatusOK, toCartResponse(sess.Cart()))
}

// ClearCart handles DELETE /v1/store/cart.
//
// @Summary      Clear the cart
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  cartResponse
// @Router       /v1/store/cart [delete]
func (h *StoreHandler) ClearCart(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	sess.ClearCart()
	return c.JSON(http.StatusOK, toCartResponse(sess.Cart()))
}

// Checkout handles POST /v1/store/checkout. An Idempotency-Key header
// makes the request replay-safe: a repeated key returns an empty result
// flagged as replayed instead of double-recording sales.
//
// @Summary      Checkout the cart
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string  false  "Idempotency key to prevent duplicate submissions"
// @Success      200              {object}  checkoutResponse
// @Router       /v1/store/checkout [post]
func (h *StoreHandler) Checkout(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := sess.Checkout(c.Request().Context(), c.Request().Header.Get("Idempotency-Key"))
	if err != nil {
		return err
	}

	outcome := "ok"
	switch {
	case result.Replayed:
		outcome = "replayed"
	case len(result.Sales) == 0:
		outcome = "empty"
	}
	metrics.CheckoutsTotal.WithLabelValues(outcome).Inc()
	metrics.CheckoutDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	metrics.SalesRecordedTotal.Add(float64(len(result.Sales)))

	return c.JSON(http.StatusOK, checkoutResponse{
		Sales:    result.Sales,
		Total:    result.Total,
		Replayed: result.Replayed,
	})
}

// EndDay handles POST /v1/store/day-end: archives the transaction log
// into a day summary. An empty log is a no-op answered with 204.
//
// @Summary      Archive the day
// @Tags         store
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.DaySummary
// @Success      204  "nothing to archive"
// @Router       /v1/store/day-end [post]
func (h *StoreHandler) EndDay(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	summary, err := sess.EndDay(c.Request().Context())
	if err != nil {
		return err
	}
	if summary == nil {
		return c.NoContent(http.StatusNoContent)
	}
	metrics.DayEndsTotal.Inc()
	return c.JSON(http.StatusOK, summary)
}

// UpdateMembers handles PUT /v1/store/members: replaces one membership
// list wholesale. Owner only.
//
// @Summary      Update a membership list
// @Tags         store
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateMembersRequest  true  "List kind and emails"
// @Success      200   {object}  getStoreResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/store/members [put]
func (h *StoreHandler) UpdateMembers(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req updateMembersRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	if err := sess.UpdateMembership(c.Request().Context(), ports.MemberKind(req.Kind), req.Emails); err != nil {
		return err
	}
	return h.Get(c)
}
