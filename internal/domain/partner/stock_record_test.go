package partner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shop/backend/internal/domain/shared/valueobject"
)

func TestNewPartner(t *testing.T) {
	p, err := NewPartner(" Book Depot ")
	require.NoError(t, err)
	assert.Equal(t, "Book Depot", p.Name)
	assert.Equal(t, "book-depot", p.Code)

	_, err = NewPartner("")
	assert.Error(t, err)
}

func TestStockRecord(t *testing.T) {
	t.Run("new record defaults", func(t *testing.T) {
		s, err := NewStockRecord("SKU-1")
		require.NoError(t, err)
		assert.Equal(t, "SKU-1", s.PartnerSKU)
		assert.Equal(t, "GBP", s.PriceCurrency)
		assert.True(t, s.Price.IsZero())
	})

	t.Run("rejects empty sku", func(t *testing.T) {
		_, err := NewStockRecord(" ")
		assert.Error(t, err)
	})

	t.Run("assigns product and partner", func(t *testing.T) {
		s, _ := NewStockRecord("SKU-1")
		productID, partnerID := uuid.New(), uuid.New()
		s.Assign(productID, partnerID)
		assert.Equal(t, productID, s.ProductID)
		assert.Equal(t, partnerID, s.PartnerID)
	})

	t.Run("sets price", func(t *testing.T) {
		s, _ := NewStockRecord("SKU-1")
		price, err := valueobject.NewMoneyFromString("12.99", valueobject.USD)
		require.NoError(t, err)
		require.NoError(t, s.SetPrice(price))
		assert.True(t, s.Price.Equal(decimal.RequireFromString("12.99")))
		assert.Equal(t, "USD", s.PriceCurrency)
		assert.True(t, s.PriceMoney().Equals(price))

		neg, _ := valueobject.NewMoneyFromString("-1", valueobject.GBP)
		assert.Error(t, s.SetPrice(neg))
	})

	t.Run("sets stock", func(t *testing.T) {
		s, _ := NewStockRecord("SKU-1")
		require.NoError(t, s.SetStock(7))
		assert.Equal(t, 7, s.NumInStock)
		assert.Error(t, s.SetStock(-1))
		assert.Equal(t, 7, s.NumInStock)
	})
}
