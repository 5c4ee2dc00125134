package ports

import (
	"context"
	"time"

	"github.com/shopmaster/store-system/internal/core/domain"
)

// MemberKind selects which membership list an update targets.
type MemberKind string

const (
	MemberKindStaff  MemberKind = "staff"
	MemberKindFamily MemberKind = "family"
)

// StoreAccess pairs an accessible store with the role the identity
// holds in it, for selection lists.
type StoreAccess struct {
	Store domain.Store
	Role  domain.Role
}

// ProvisionInput carries the data needed to stand up a new store.
type ProvisionInput struct {
	DisplayName string
	BrandID     string
	Country     string
}

// AddItemInput carries a new catalog entry. The item starts unpriced.
type AddItemInput struct {
	Name     string
	Category string
	ImageRef string
}

// CheckoutResult reports what a checkout produced. A checkout with an
// empty cart (or no bound store) produces a zero result, not an error.
type CheckoutResult struct {
	Sales []domain.Sale
	Total float64
	// Replayed is true when an idempotency key matched a previous
	// checkout and no new sales were recorded.
	Replayed bool
}

// Session is one device session: the state machine over login, store
// selection, provisioning, and the active store binding. All mutating
// operations are silent no-ops outside the Active state (and, for
// owner-only operations, for non-owner roles).
type Session interface {
	ID() string
	State() domain.SessionState
	Identity() domain.Identity
	Role() domain.Role
	ActiveStoreID() string

	// AccessibleStores recomputes the stores this identity may access,
	// each labeled with its computed role.
	AccessibleStores(ctx context.Context) ([]StoreAccess, error)
	// Select binds one of the accessible stores and recomputes the role.
	Select(ctx context.Context, storeID string) error
	// Provision creates a new store owned by this identity and binds it.
	Provision(ctx context.Context, in ProvisionInput) (*domain.Store, error)
	// SwitchStore returns to the selection state, retaining the identity.
	SwitchStore()
	// ActiveStore returns the latest snapshot of the bound store.
	ActiveStore(ctx context.Context) (*domain.Store, error)

	Cart() []domain.CartLine
	AddToCart(ctx context.Context, itemID string, quantity int) error
	RemoveFromCart(itemID string)
	ClearCart()
	Checkout(ctx context.Context, idempotencyKey string) (*CheckoutResult, error)

	SetPrice(ctx context.Context, itemID string, price float64) error
	AddCatalogItem(ctx context.Context, in AddItemInput) error
	EndDay(ctx context.Context) (*domain.DaySummary, error)
	UpdateMembership(ctx context.Context, kind MemberKind, emails []string) error
	UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Identity, error)
}

// SessionManager owns the live sessions of this process.
type SessionManager interface {
	// Begin routes a freshly authenticated identity per the selection
	// policy and returns the resulting session.
	Begin(ctx context.Context, identity domain.Identity) (Session, error)
	// Get returns the live session, or domain.ErrSessionNotFound.
	Get(id string) (Session, error)
	// End logs the session out and discards it.
	End(id string)
}

// Brand is a predefined storefront template.
type Brand struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	LogoRef        string               `json:"logo_ref"`
	DefaultCatalog []domain.CatalogItem `json:"default_catalog"`
}

// BrandProvider looks up brand templates, used only to seed a catalog
// at provisioning time.
type BrandProvider interface {
	Lookup(brandID string) (Brand, bool)
}

// Country describes a country's currency relative to the USD reference
// unit.
type Country struct {
	Name      string  `json:"name"`
	Currency  string  `json:"currency"`
	Symbol    string  `json:"symbol"`
	RateToUSD float64 `json:"rate_to_usd"`
}

// CurrencyProvider resolves countries and converts amounts for display.
// Stores keep monetary amounts in their native country unit; conversion
// never happens inside the core.
type CurrencyProvider interface {
	Country(name string) Country
	// Convert returns the display value and currency symbol for an
	// amount recorded in fromCountry's native unit.
	Convert(amount float64, fromCountry, toCurrency string) (float64, string)
}

// PresenceWriter keeps member heartbeats flowing into a store's
// presence map. Heartbeat records one write; implementations must merge
// at the email key and leave unrelated keys untouched. Run repeats
// heartbeats until ctx is cancelled, with no trailing write after
// cancellation.
type PresenceWriter interface {
	Heartbeat(ctx context.Context, storeID string, rec domain.PresenceRecord, at time.Time) error
	Run(ctx context.Context, storeID string, identity domain.Identity, role domain.Role)
}
