// Package refdata holds the static reference data consumed by the core:
// predefined brand templates and the country/currency table.
package refdata

import (
	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// brands is the catalog of predefined storefront templates. Default
// catalog items ship unpriced; owners set prices after provisioning.
var brands = []ports.Brand{
	{
		ID:      "mcdonalds",
		Name:    "McDonald's",
		LogoRef: "https://upload.wikimedia.org/wikipedia/commons/thumb/3/36/McDonald%27s_Golden_Arches.svg/1200px-McDonald%27s_Golden_Arches.svg.png",
		DefaultCatalog: []domain.CatalogItem{
			{ID: "mc-1", Name: "Big Mac", Category: "Burger", ImageRef: "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=400"},
			{ID: "mc-2", Name: "Large Fries", Category: "Sides", ImageRef: "https://images.unsplash.com/photo-1573016608244-7d5cf169c97b?w=400"},
		},
	},
	{
		ID:      "waghbakri",
		Name:    "Wagh Bakri Tea",
		LogoRef: "https://www.waghbakritea.com/assets/images/logo.png",
		DefaultCatalog: []domain.CatalogItem{
			{ID: "wb-1", Name: "Masala Chai", Category: "Tea"},
			{ID: "wb-2", Name: "Ginger Tea", Category: "Tea"},
			{ID: "wb-3", Name: "Green Tea", Category: "Tea"},
		},
	},
	{
		ID:      "chinese",
		Name:    "Chinese Express",
		LogoRef: "https://cdn-icons-png.flaticon.com/512/1041/1041373.png",
		DefaultCatalog: []domain.CatalogItem{
			{ID: "ch-1", Name: "Hakka Noodles", Category: "Main"},
			{ID: "ch-2", Name: "Manchurian", Category: "Starter"},
			{ID: "ch-3", Name: "Spring Rolls", Category: "Starter"},
		},
	},
	{
		ID:      "fok",
		Name:    "Fok Restaurant",
		LogoRef: "https://cdn-icons-png.flaticon.com/512/1160/1160358.png",
		DefaultCatalog: []domain.CatalogItem{
			{ID: "fok-1", Name: "Fok Special Pizza", Category: "Pizza"},
			{ID: "fok-2", Name: "Pasta Arrabiata", Category: "Pasta"},
		},
	},
	{
		ID:      "starbucks",
		Name:    "Starbucks",
		LogoRef: "https://upload.wikimedia.org/wikipedia/en/thumb/d/d3/Starbucks_Corporation_Logo_2011.svg/1200px-Starbucks_Corporation_Logo_2011.svg.png",
		DefaultCatalog: []domain.CatalogItem{
			{ID: "sb-1", Name: "Caffè Latte", Category: "Coffee", ImageRef: "https://images.unsplash.com/photo-1541167760496-162955ed8a9f?w=400"},
			{ID: "sb-2", Name: "Caramel Macchiato", Category: "Coffee", ImageRef: "https://images.unsplash.com/photo-1485808191679-5f6333f17c81?w=400"},
		},
	},
}

// BrandCatalog serves the predefined brand templates.
type BrandCatalog struct{}

func NewBrandCatalog() *BrandCatalog {
	return &BrandCatalog{}
}

// Lookup returns the brand template for id, if known.
func (b *BrandCatalog) Lookup(brandID string) (ports.Brand, bool) {
	for _, brand := range brands {
		if brand.ID == brandID {
			return brand, true
		}
	}
	return ports.Brand{}, false
}

// All returns every brand template, for selection lists.
func (b *BrandCatalog) All() []ports.Brand {
	out := make([]ports.Brand, len(brands))
	copy(out, brands)
	return out
}
