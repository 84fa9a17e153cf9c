package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
)

// Product is a sellable catalogue item identified by its UPC
type Product struct {
	shared.BaseEntity
	UPC            string     `gorm:"column:upc;type:varchar(64);not null;uniqueIndex"`
	Title          string     `gorm:"type:varchar(255);not null;index"`
	Slug           string     `gorm:"type:varchar(255);not null;index"`
	Description    string     `gorm:"type:text"`
	ProductClassID *uuid.UUID `gorm:"type:uuid;index"`
	IsPublic       bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates an empty public product with the given UPC
func NewProduct(upc string) (*Product, error) {
	upc = strings.TrimSpace(upc)
	if upc == "" {
		return nil, shared.NewDomainError("INVALID_UPC", "Product UPC cannot be empty")
	}
	if utf8.RuneCountInString(upc) > 64 {
		return nil, shared.NewDomainError("INVALID_UPC", "Product UPC cannot exceed 64 characters")
	}
	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		UPC:        upc,
		IsPublic:   true,
	}, nil
}

// Describe sets the title, description and product class
func (p *Product) Describe(title, description string, class *ProductClass) error {
	title = strings.TrimSpace(title)
	if err := validateName("product", title, 255); err != nil {
		return err
	}
	p.Title = title
	p.Slug = shared.Slugify(title)
	p.Description = description
	if class != nil {
		p.ProductClassID = &class.ID
	} else {
		p.ProductClassID = nil
	}
	p.Touch()
	return nil
}

// ProductCategory links a product to a category
type ProductCategory struct {
	ProductID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// TableName returns the table name for GORM
func (ProductCategory) TableName() string {
	return "product_categories"
}
