package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shop/backend/internal/domain/partner"
	"github.com/shop/backend/internal/domain/shared"
)

// GormPartnerRepository implements PartnerRepository using GORM
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewGormPartnerRepository creates a new GormPartnerRepository
func NewGormPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// FindByName finds a partner by exact name
func (r *GormPartnerRepository) FindByName(ctx context.Context, name string) (*partner.Partner, error) {
	var p partner.Partner
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindAll returns all partners ordered by name
func (r *GormPartnerRepository) FindAll(ctx context.Context) ([]partner.Partner, error) {
	var partners []partner.Partner
	if err := r.db.WithContext(ctx).Order("name").Find(&partners).Error; err != nil {
		return nil, err
	}
	return partners, nil
}

// Save creates or updates a partner
func (r *GormPartnerRepository) Save(ctx context.Context, p *partner.Partner) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// DeleteAll removes every partner
func (r *GormPartnerRepository) DeleteAll(ctx context.Context) error {
	return deleteAll(ctx, r.db, &partner.Partner{})
}

// GormStockRecordRepository implements StockRecordRepository using GORM
type GormStockRecordRepository struct {
	db *gorm.DB
}

// NewGormStockRecordRepository creates a new GormStockRecordRepository
func NewGormStockRecordRepository(db *gorm.DB) *GormStockRecordRepository {
	return &GormStockRecordRepository{db: db}
}

// FindByPartnerSKU finds the stock record holding sku
func (r *GormStockRecordRepository) FindByPartnerSKU(ctx context.Context, sku string) (*partner.StockRecord, error) {
	var records []partner.StockRecord
	if err := r.db.WithContext(ctx).
		Where("partner_sku = ?", sku).
		Limit(2).
		Find(&records).Error; err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, shared.ErrNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, shared.ErrMultipleFound
	}
}

// FindByProduct returns a product's stock records
func (r *GormStockRecordRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]partner.StockRecord, error) {
	var records []partner.StockRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("partner_sku").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save creates or updates a stock record
func (r *GormStockRecordRepository) Save(ctx context.Context, record *partner.StockRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// DeleteAll removes every stock record
func (r *GormStockRecordRepository) DeleteAll(ctx context.Context) error {
	return deleteAll(ctx, r.db, &partner.StockRecord{})
}
