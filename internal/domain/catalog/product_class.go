package catalog

import (
	"strings"

	"github.com/shop/backend/internal/domain/shared"
)

// ProductClass groups products that share shipping and stock-tracking behaviour
type ProductClass struct {
	shared.BaseEntity
	Name             string `gorm:"type:varchar(128);not null;uniqueIndex"`
	Slug             string `gorm:"type:varchar(128);not null;index"`
	RequiresShipping bool   `gorm:"not null;default:true"`
	TrackStock       bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ProductClass) TableName() string {
	return "product_classes"
}

// NewProductClass creates a product class that ships and tracks stock
func NewProductClass(name string) (*ProductClass, error) {
	name = strings.TrimSpace(name)
	if err := validateName("product class", name, 128); err != nil {
		return nil, err
	}
	return &ProductClass{
		BaseEntity:       shared.NewBaseEntity(),
		Name:             name,
		Slug:             shared.Slugify(name),
		RequiresShipping: true,
		TrackStock:       true,
	}, nil
}
