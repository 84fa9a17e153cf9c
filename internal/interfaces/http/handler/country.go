package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shop/backend/internal/domain/address"
)

// CountryLister reads the countries table
type CountryLister interface {
	ListCountries(ctx context.Context, shippingOnly bool) ([]address.Country, error)
}

// CountryHandler handles the countries endpoint
type CountryHandler struct {
	BaseHandler
	countries CountryLister
}

// NewCountryHandler creates a new CountryHandler
func NewCountryHandler(countries CountryLister) *CountryHandler {
	return &CountryHandler{countries: countries}
}

// ListCountries returns every country, or only shipping countries with ?shipping=true
func (h *CountryHandler) ListCountries(c *gin.Context) {
	shippingOnly := false
	if v := c.Query("shipping"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.BadRequest(c, "shipping must be a boolean")
			return
		}
		shippingOnly = b
	}

	countries, err := h.countries.ListCountries(c.Request.Context(), shippingOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, countries)
}
