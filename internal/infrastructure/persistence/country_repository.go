package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/shop/backend/internal/domain/address"
)

// GormCountryRepository implements CountryRepository using GORM
type GormCountryRepository struct {
	db *gorm.DB
}

// NewGormCountryRepository creates a new GormCountryRepository
func NewGormCountryRepository(db *gorm.DB) *GormCountryRepository {
	return &GormCountryRepository{db: db}
}

// Count returns the number of stored countries
func (r *GormCountryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&address.Country{}).Count(&n).Error
	return n, err
}

// FindAll returns countries ordered by display order then printable name
func (r *GormCountryRepository) FindAll(ctx context.Context, shippingOnly bool) ([]address.Country, error) {
	query := r.db.WithContext(ctx).Order("display_order DESC, printable_name")
	if shippingOnly {
		query = query.Where("is_shipping_country = ?", true)
	}
	var countries []address.Country
	if err := query.Find(&countries).Error; err != nil {
		return nil, err
	}
	return countries, nil
}

// SaveAll inserts countries in batches inside one transaction
func (r *GormCountryRepository) SaveAll(ctx context.Context, countries []address.Country) error {
	if len(countries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(countries, 100).Error
	})
}
