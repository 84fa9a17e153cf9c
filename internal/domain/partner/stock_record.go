package partner

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// StockRecord is a partner's offer for a product: its SKU, price and stock level
type StockRecord struct {
	shared.BaseEntity
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartnerID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_partner_sku,priority:1"`
	PartnerSKU    string          `gorm:"column:partner_sku;type:varchar(128);not null;uniqueIndex:idx_stock_partner_sku,priority:2"`
	PriceCurrency string          `gorm:"type:varchar(12);not null"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2)"`
	NumInStock    int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (StockRecord) TableName() string {
	return "stock_records"
}

// NewStockRecord creates an empty stock record for a SKU
func NewStockRecord(sku string) (*StockRecord, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "partner SKU cannot be empty")
	}
	return &StockRecord{
		BaseEntity:    shared.NewBaseEntity(),
		PartnerSKU:    sku,
		PriceCurrency: string(valueobject.DefaultCurrency),
		Price:         decimal.Zero,
	}, nil
}

// Assign points the record at a product and partner
func (s *StockRecord) Assign(productID, partnerID uuid.UUID) {
	s.ProductID = productID
	s.PartnerID = partnerID
	s.Touch()
}

// SetPrice sets the price; negative prices are rejected
func (s *StockRecord) SetPrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "price cannot be negative")
	}
	s.Price = price.Amount()
	s.PriceCurrency = string(price.Currency())
	s.Touch()
	return nil
}

// SetStock sets the number in stock; negative counts are rejected
func (s *StockRecord) SetStock(n int) error {
	if n < 0 {
		return shared.NewDomainError("INVALID_STOCK", "stock level cannot be negative")
	}
	s.NumInStock = n
	s.Touch()
	return nil
}

// PriceMoney returns the price as a Money value
func (s *StockRecord) PriceMoney() valueobject.Money {
	m, err := valueobject.NewMoney(s.Price, valueobject.Currency(s.PriceCurrency))
	if err != nil {
		return valueobject.Zero(valueobject.DefaultCurrency)
	}
	return m
}
