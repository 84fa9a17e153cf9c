package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
)

// LookupField names the product attribute that image file names are matched against
type LookupField string

const (
	LookupByUPC   LookupField = "upc"
	LookupByTitle LookupField = "title"
)

// ErrInvalidLookupField is returned for a lookup field outside the allowed set
var ErrInvalidLookupField = shared.NewDomainError("INVALID_LOOKUP_FIELD", "Product lookup field must be one of: upc, title")

// ParseLookupField validates a lookup field name
func ParseLookupField(s string) (LookupField, error) {
	switch f := LookupField(strings.ToLower(strings.TrimSpace(s))); f {
	case LookupByUPC, LookupByTitle:
		return f, nil
	default:
		return "", ErrInvalidLookupField
	}
}

// Column returns the products column for the field
func (f LookupField) Column() string {
	return string(f)
}

// ProductImage is a stored image attached to a product.
// Original is the storage key of the file.
type ProductImage struct {
	shared.BaseEntity
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Original     string    `gorm:"type:varchar(255);not null"`
	Caption      string    `gorm:"type:varchar(200)"`
	DisplayOrder int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductImage) TableName() string {
	return "product_images"
}

// NewProductImage creates an image row for a stored file
func NewProductImage(productID uuid.UUID, original string, displayOrder int) (*ProductImage, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
	}
	if strings.TrimSpace(original) == "" {
		return nil, shared.NewDomainError("INVALID_IMAGE", "Image storage key cannot be empty")
	}
	if displayOrder < 0 {
		return nil, shared.NewDomainError("INVALID_DISPLAY_ORDER", "Display order cannot be negative")
	}
	return &ProductImage{
		BaseEntity:   shared.NewBaseEntity(),
		ProductID:    productID,
		Original:     original,
		DisplayOrder: displayOrder,
	}, nil
}

// NextDisplayOrder returns one past the highest display order, or 0 for no images
func NextDisplayOrder(images []ProductImage) int {
	next := 0
	for _, img := range images {
		if img.DisplayOrder >= next {
			next = img.DisplayOrder + 1
		}
	}
	return next
}
