package address

import (
	"strings"

	"github.com/shop/backend/internal/domain/shared"
)

// Country is an ISO 3166-1 country
type Country struct {
	Code              string `gorm:"column:iso_3166_1_a2;type:varchar(2);primaryKey" json:"code"`
	ISO3              string `gorm:"column:iso_3166_1_a3;type:varchar(3)" json:"iso3"`
	Numeric           string `gorm:"column:iso_3166_1_numeric;type:varchar(3)" json:"numeric"`
	PrintableName     string `gorm:"column:printable_name;type:varchar(128);not null" json:"printable_name"`
	Name              string `gorm:"column:name;type:varchar(128)" json:"name"`
	DisplayOrder      int    `gorm:"column:display_order;not null;default:0" json:"display_order"`
	IsShippingCountry bool   `gorm:"column:is_shipping_country;not null;default:false" json:"is_shipping_country"`
}

// TableName returns the table name for GORM
func (Country) TableName() string {
	return "countries"
}

// NewCountry creates a country from its codes and display name
func NewCountry(alpha2, alpha3, numeric, name string, shipping bool) (*Country, error) {
	alpha2 = strings.ToUpper(strings.TrimSpace(alpha2))
	if len(alpha2) != 2 {
		return nil, shared.NewDomainError("INVALID_COUNTRY_CODE", "country code must be two letters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "country name cannot be empty")
	}
	return &Country{
		Code:              alpha2,
		ISO3:              strings.ToUpper(alpha3),
		Numeric:           numeric,
		PrintableName:     name,
		Name:              name,
		IsShippingCountry: shipping,
	}, nil
}
