package refdata

import "github.com/shopmaster/store-system/internal/core/ports"

// countries maps country names to currency data. Rates are relative to
// USD, the reference unit for display conversion.
var countries = []ports.Country{
	{Name: "India", Currency: "INR", Symbol: "₹", RateToUSD: 0.012},
	{Name: "United States", Currency: "USD", Symbol: "$", RateToUSD: 1},
	{Name: "United Kingdom", Currency: "GBP", Symbol: "£", RateToUSD: 1.27},
	{Name: "Germany", Currency: "EUR", Symbol: "€", RateToUSD: 1.08},
	{Name: "Japan", Currency: "JPY", Symbol: "¥", RateToUSD: 0.0067},
	{Name: "United Arab Emirates", Currency: "AED", Symbol: "د.إ", RateToUSD: 0.27},
	{Name: "Canada", Currency: "CAD", Symbol: "$", RateToUSD: 0.74},
}

// CurrencyTable resolves countries and converts display amounts.
type CurrencyTable struct{}

func NewCurrencyTable() *CurrencyTable {
	return &CurrencyTable{}
}

// Country returns the currency data for a country name. Unknown names
// fall back to the United States entry.
func (t *CurrencyTable) Country(name string) ports.Country {
	for _, c := range countries {
		if c.Name == name {
			return c
		}
	}
	return countries[1]
}

// Convert converts an amount recorded in fromCountry's native unit into
// toCurrency, returning the converted value and the target symbol. An
// unknown target currency leaves the amount in the source unit.
func (t *CurrencyTable) Convert(amount float64, fromCountry, toCurrency string) (float64, string) {
	from := t.Country(fromCountry)
	to := from
	for _, c := range countries {
		if c.Currency == toCurrency {
			to = c
			break
		}
	}
	inUSD := amount * from.RateToUSD
	return inUSD / to.RateToUSD, to.Symbol
}

// All returns the full country table, for selection lists.
func (t *CurrencyTable) All() []ports.Country {
	out := make([]ports.Country, len(countries))
	copy(out, countries)
	return out
}
