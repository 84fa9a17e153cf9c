package partner

import (
	"strings"
	"unicode/utf8"

	"github.com/shop/backend/internal/domain/shared"
)

// Partner is a fulfilment partner (supplier) that holds stock
type Partner struct {
	shared.BaseEntity
	Name string `gorm:"type:varchar(128);not null;uniqueIndex"`
	Code string `gorm:"type:varchar(128);not null;index"`
}

// TableName returns the table name for GORM
func (Partner) TableName() string {
	return "partners"
}

// NewPartner creates a partner whose code is derived from its name
func NewPartner(name string) (*Partner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "partner name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 128 {
		return nil, shared.NewDomainError("INVALID_NAME", "partner name cannot exceed 128 characters")
	}
	return &Partner{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Code:       shared.Slugify(name),
	}, nil
}
