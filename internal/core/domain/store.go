package domain

import "time"

// Store is the core aggregate root: one storefront shared by all of its
// members. The registry (not any single session) is its longest-lived
// holder.
type Store struct {
	ID             string        `json:"id" bson:"id"`
	Config         StoreConfig   `json:"config" bson:"config"`
	Catalog        []CatalogItem `json:"catalog" bson:"catalog"`
	TransactionLog []Sale        `json:"transaction_log" bson:"transaction_log"`
	Archive        []DaySummary  `json:"archive" bson:"archive"`
	LastDayEndAt   time.Time     `json:"last_day_end_at" bson:"last_day_end_at"`
}

// StoreConfig holds the membership lists and presence map that drive
// access resolution. OwnerEmail is set exactly once, at creation, and
// is immutable thereafter.
type StoreConfig struct {
	DisplayName  string                    `json:"display_name" bson:"display_name"`
	BrandID      string                    `json:"brand_id" bson:"brand_id"`
	Country      string                    `json:"country" bson:"country"`
	Provisioned  bool                      `json:"provisioned" bson:"provisioned"`
	OwnerEmail   string                    `json:"owner_email" bson:"owner_email"`
	StaffEmails  []string                  `json:"staff_emails" bson:"staff_emails"`
	FamilyEmails []string                  `json:"family_emails" bson:"family_emails"`
	Presence     map[string]PresenceRecord `json:"presence" bson:"presence"` // keyed by normalized email
}

// HasMember reports whether the normalized email may access the store,
// in any role.
func (c StoreConfig) HasMember(email string) bool {
	if email == "" {
		return false
	}
	if c.OwnerEmail == email {
		return true
	}
	return containsEmail(c.StaffEmails, email) || containsEmail(c.FamilyEmails, email)
}

func containsEmail(list []string, email string) bool {
	for _, e := range list {
		if e == email {
			return true
		}
	}
	return false
}

// CatalogItem is a sellable entry in a store's catalog. A nil Price
// means "not yet priced"; unpriced items cannot enter a cart.
type CatalogItem struct {
	ID         string   `json:"id" bson:"id"`
	Name       string   `json:"name" bson:"name"`
	Category   string   `json:"category" bson:"category"`
	Price      *float64 `json:"price,omitempty" bson:"price,omitempty"`
	ImageRef   string   `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
	SalesCount int      `json:"sales_count" bson:"sales_count"`
}

// Sale is one append-only entry in the transaction log. ItemName is a
// snapshot: renaming the catalog item later does not rewrite history.
type Sale struct {
	ID        string    `json:"id" bson:"id"`
	ItemID    string    `json:"item_id" bson:"item_id"`
	ItemName  string    `json:"item_name" bson:"item_name"`
	Amount    float64   `json:"amount" bson:"amount"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// DaySummary is the archived aggregate produced at each day-end.
type DaySummary struct {
	ID           string    `json:"id" bson:"id"`
	Date         time.Time `json:"date" bson:"date"`
	TotalRevenue float64   `json:"total_revenue" bson:"total_revenue"`
	TotalSales   int       `json:"total_sales" bson:"total_sales"`
}

// PresenceRecord is a member's last-seen heartbeat within one store.
// Online/offline is never stored; it is recomputed from LastActive.
type PresenceRecord struct {
	Name       string    `json:"name" bson:"name"`
	Email      string    `json:"email" bson:"email"`
	LastActive time.Time `json:"last_active" bson:"last_active"`
	Role       Role      `json:"role" bson:"role"`
}
