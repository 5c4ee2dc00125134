package handler

import (
	"time"

	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type registerRequest struct {
	Name   string `json:"name"   validate:"required"`
	Email  string `json:"email"  validate:"required,email"`
	Secret string `json:"secret" validate:"required,min=4"`
	Role   string `json:"role"   validate:"omitempty,oneof=owner staff family"`
}

type loginRequest struct {
	Email  string `json:"email"  validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

type selectStoreRequest struct {
	StoreID string `json:"store_id" validate:"required"`
}

type provisionStoreRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	BrandID     string `json:"brand_id"`
	Country     string `json:"country"      validate:"required"`
}

type addItemRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category"`
	ImageRef string `json:"image_ref"`
}

type setPriceRequest struct {
	Price float64 `json:"price" validate:"required,gt=0"`
}

type addToCartRequest struct {
	ItemID   string `json:"item_id"  validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type updateMembersRequest struct {
	Kind   string   `json:"kind"   validate:"required,oneof=staff family"`
	Emails []string `json:"emails" validate:"required"`
}

type updateProfileRequest struct {
	PhotoRef        *string `json:"photo_ref"`
	DisplayCurrency *string `json:"display_currency"`
}

// --- Response types ---
// These are intentionally separate from ports/domain types so the JSON
// contract is not coupled to internal service changes.

type accountResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	PhotoRef        string `json:"photo_ref,omitempty"`
	Role            string `json:"role"`
	DisplayCurrency string `json:"display_currency,omitempty"`
}

func toAccountResponse(i domain.Identity) accountResponse {
	return accountResponse{
		ID:              i.ID,
		Name:            i.Name,
		Email:           i.Email,
		PhotoRef:        i.PhotoRef,
		Role:            string(i.Role),
		DisplayCurrency: i.DisplayCurrency,
	}
}

type sessionResponse struct {
	Token         string          `json:"token,omitempty"`
	State         string          `json:"state"`
	Account       accountResponse `json:"account"`
	Role          string          `json:"role,omitempty"`
	ActiveStoreID string          `json:"active_store_id,omitempty"`
}

func toSessionResponse(sess ports.Session, token string) sessionResponse {
	return sessionResponse{
		Token:         token,
		State:         string(sess.State()),
		Account:       toAccountResponse(sess.Identity()),
		Role:          string(sess.Role()),
		ActiveStoreID: sess.ActiveStoreID(),
	}
}

// storeAccessResponse is the lightweight item used in the selection
// list. It omits the catalog and transaction log to keep payloads small.
type storeAccessResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	BrandID     string `json:"brand_id,omitempty"`
	Country     string `json:"country"`
	Role        string `json:"role"`
}

func toStoreAccessResponse(access ports.StoreAccess) storeAccessResponse {
	return storeAccessResponse{
		ID:          access.Store.ID,
		DisplayName: access.Store.Config.DisplayName,
		BrandID:     access.Store.Config.BrandID,
		Country:     access.Store.Config.Country,
		Role:        string(access.Role),
	}
}

type presenceEntryResponse struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	LastActive time.Time `json:"last_active"`
	Online     bool      `json:"online"`
}

// displayPricingResponse carries catalog prices converted into the
// viewer's display currency, keyed by item id. Amounts stay recorded in
// the store's native unit; conversion happens only at this projection
// boundary.
type displayPricingResponse struct {
	Currency string             `json:"currency"`
	Symbol   string             `json:"symbol"`
	Prices   map[string]float64 `json:"prices"`
}

type getStoreResponse struct {
	Store    domain.Store            `json:"store"`
	Presence []presenceEntryResponse `json:"presence"`
	Display  *displayPricingResponse `json:"display,omitempty"`
}

type cartLineResponse struct {
	ItemID   string   `json:"item_id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price,omitempty"`
	Quantity int      `json:"quantity"`
	Subtotal float64  `json:"subtotal"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
	Total float64            `json:"total"`
}

func toCartResponse(lines []domain.CartLine) cartResponse {
	resp := cartResponse{Lines: make([]cartLineResponse, 0, len(lines))}
	for _, line := range lines {
		sub := 0.0
		if line.Item.Price != nil {
			sub = *line.Item.Price * float64(line.Quantity)
		}
		resp.Lines = append(resp.Lines, cartLineResponse{
			ItemID:   line.Item.ID,
			Name:     line.Item.Name,
			Price:    line.Item.Price,
			Quantity: line.Quantity,
			Subtotal: sub,
		})
		resp.Total += sub
	}
	return resp
}

type checkoutResponse struct {
	Sales    []domain.Sale `json:"sales"`
	Total    float64       `json:"total"`
	Replayed bool          `json:"replayed"`
}
