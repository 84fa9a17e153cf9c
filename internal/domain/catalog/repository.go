package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
)

// ProductClassRepository defines persistence for product classes
type ProductClassRepository interface {
	// FindByName returns shared.ErrNotFound when no class has the name
	FindByName(ctx context.Context, name string) (*ProductClass, error)
	FindByID(ctx context.Context, id uuid.UUID) (*ProductClass, error)
	FindAll(ctx context.Context) ([]ProductClass, error)
	Save(ctx context.Context, class *ProductClass) error
	DeleteAll(ctx context.Context) error
}

// CategoryRepository defines persistence for the category tree
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	// FindRootByName finds a top-level category by exact name
	FindRootByName(ctx context.Context, name string) (*Category, error)
	// FindChildByName finds a direct child of parentID by exact name
	FindChildByName(ctx context.Context, parentID uuid.UUID, name string) (*Category, error)
	// FindAll returns every category ordered by materialized path
	FindAll(ctx context.Context) ([]Category, error)
	// FindByProduct returns the categories linked to a product
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]Category, error)
	Save(ctx context.Context, category *Category) error
	DeleteAll(ctx context.Context) error
}

// ProductRepository defines persistence for products and their category links
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByUPC(ctx context.Context, upc string) (*Product, error)
	// FindByField returns at most limit products whose field equals value
	FindByField(ctx context.Context, field LookupField, value string, limit int) ([]Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, int64, error)
	Save(ctx context.Context, product *Product) error
	// LinkCategory creates the product/category link unless it already exists
	LinkCategory(ctx context.Context, productID, categoryID uuid.UUID) error
	// DeleteAll removes every product and product/category link
	DeleteAll(ctx context.Context) error
}

// ProductImageRepository defines persistence for product images
type ProductImageRepository interface {
	// FindByProduct returns the product's images in display order
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]ProductImage, error)
	Save(ctx context.Context, image *ProductImage) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
}
