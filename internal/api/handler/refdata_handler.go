package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shopmaster/store-system/internal/core/refdata"
)

// RefdataHandler serves the static reference tables: brand templates
// and the country/currency table.
type RefdataHandler struct {
	brands     *refdata.BrandCatalog
	currencies *refdata.CurrencyTable
}

func NewRefdataHandler(brands *refdata.BrandCatalog, currencies *refdata.CurrencyTable) *RefdataHandler {
	return &RefdataHandler{brands: brands, currencies: currencies}
}

// Brands handles GET /v1/brands.
//
// @Summary      List brand templates
// @Tags         refdata
// @Produce      json
// @Success      200  {array}  ports.Brand
// @Router       /v1/brands [get]
func (h *RefdataHandler) Brands(c echo.Context) error {
	return c.JSON(http.StatusOK, h.brands.All())
}

// Countries handles GET /v1/countries.
//
// @Summary      List supported countries and currencies
// @Tags         refdata
// @Produce      json
// @Success      200  {array}  ports.Country
// @Router       /v1/countries [get]
func (h *RefdataHandler) Countries(c echo.Context) error {
	return c.JSON(http.StatusOK, h.currencies.All())
}

type convertResponse struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Convert handles GET /v1/countries/convert: display conversion of an
// amount recorded in one country's native unit. Stores never convert
// internally; this exists purely for presentation.
//
// @Summary      Convert an amount for display
// @Tags         refdata
// @Produce      json
// @Param        amount  query     number  true  "Amount in the source country's unit"
// @Param        from    query     string  true  "Source country name"
// @Param        to      query     string  true  "Target currency code"
// @Success      200     {object}  convertResponse
// @Failure      400     {object}  errorResponse
// @Router       /v1/countries/convert [get]
func (h *RefdataHandler) Convert(c echo.Context) error {
	amount, err := strconv.ParseFloat(c.QueryParam("amount"), 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "amount must be a number"})
	}
	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if from == "" || to == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "from and to are required"})
	}

	value, symbol := h.currencies.Convert(amount, from, to)
	return c.JSON(http.StatusOK, convertResponse{Value: value, Currency: symbol})
}
