package persistence

import (
	"context"

	catalogapp "github.com/shop/backend/internal/application/catalog"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/partner"
	"gorm.io/gorm"
)

// GormCatalogueScope implements catalogapp.TransactionScope using GORM.
// Outside Execute its repositories run against the plain connection.
type GormCatalogueScope struct {
	gormCatalogueRepositories
}

// NewGormCatalogueScope creates a new GormCatalogueScope
func NewGormCatalogueScope(db *gorm.DB) *GormCatalogueScope {
	return &GormCatalogueScope{gormCatalogueRepositories{db: db}}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormCatalogueScope) Execute(ctx context.Context, fn func(repos catalogapp.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormCatalogueRepositories{db: tx})
	})
}

// gormCatalogueRepositories hands out repositories bound to one *gorm.DB
type gormCatalogueRepositories struct {
	db *gorm.DB
}

func (r *gormCatalogueRepositories) ProductClasses() catalog.ProductClassRepository {
	return NewGormProductClassRepository(r.db)
}

func (r *gormCatalogueRepositories) Categories() catalog.CategoryRepository {
	return NewGormCategoryRepository(r.db)
}

func (r *gormCatalogueRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.db)
}

func (r *gormCatalogueRepositories) Images() catalog.ProductImageRepository {
	return NewGormProductImageRepository(r.db)
}

func (r *gormCatalogueRepositories) Partners() partner.PartnerRepository {
	return NewGormPartnerRepository(r.db)
}

func (r *gormCatalogueRepositories) StockRecords() partner.StockRecordRepository {
	return NewGormStockRecordRepository(r.db)
}

var (
	_ catalogapp.TransactionScope = (*GormCatalogueScope)(nil)
	_ catalogapp.Repositories     = (*gormCatalogueRepositories)(nil)
)
