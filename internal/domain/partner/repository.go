package partner

import (
	"context"

	"github.com/google/uuid"
)

// PartnerRepository defines persistence for partners
type PartnerRepository interface {
	FindByName(ctx context.Context, name string) (*Partner, error)
	FindAll(ctx context.Context) ([]Partner, error)
	Save(ctx context.Context, partner *Partner) error
	DeleteAll(ctx context.Context) error
}

// StockRecordRepository defines persistence for stock records
type StockRecordRepository interface {
	// FindByPartnerSKU returns shared.ErrMultipleFound when the SKU is held by more than one partner
	FindByPartnerSKU(ctx context.Context, sku string) (*StockRecord, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]StockRecord, error)
	Save(ctx context.Context, record *StockRecord) error
	DeleteAll(ctx context.Context) error
}
