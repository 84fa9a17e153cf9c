package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/shared"
)

// MaxCategoryDepth is the maximum depth of the category tree
const MaxCategoryDepth = 8

// BreadcrumbSeparator separates category names in a breadcrumb such as "Books > Fiction"
const BreadcrumbSeparator = ">"

// ErrEmptyBreadcrumb is returned when a breadcrumb has no category names
var ErrEmptyBreadcrumb = shared.NewDomainError("EMPTY_BREADCRUMB", "Category breadcrumb contains no names")

// Category is a node in the catalogue tree.
// Path is the materialized path of ancestor IDs; FullName is the breadcrumb of names.
type Category struct {
	shared.BaseEntity
	Name        string     `gorm:"type:varchar(255);not null"`
	Slug        string     `gorm:"type:varchar(255);not null;index"`
	Description string     `gorm:"type:text"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	Path        string     `gorm:"type:varchar(1024);not null;uniqueIndex"`
	Depth       int        `gorm:"not null;default:0"`
	FullName    string     `gorm:"type:varchar(1024);not null"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a root category
func NewCategory(name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := validateName("category", name, 255); err != nil {
		return nil, err
	}

	c := &Category{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Slug:       shared.Slugify(name),
		FullName:   name,
	}
	c.Path = c.ID.String()
	return c, nil
}

// NewChildCategory creates a category under parent
func NewChildCategory(name string, parent *Category) (*Category, error) {
	if parent == nil {
		return nil, shared.NewDomainError("INVALID_PARENT", "Parent category is required")
	}
	if parent.Depth >= MaxCategoryDepth-1 {
		return nil, shared.NewDomainError("MAX_DEPTH_EXCEEDED", fmt.Sprintf("Category depth cannot exceed %d levels", MaxCategoryDepth))
	}

	c, err := NewCategory(name)
	if err != nil {
		return nil, err
	}
	c.ParentID = &parent.ID
	c.Depth = parent.Depth + 1
	c.Path = parent.Path + "/" + c.ID.String()
	c.FullName = parent.FullName + " " + BreadcrumbSeparator + " " + c.Name
	return c, nil
}

// IsRoot reports whether the category has no parent
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// ParseBreadcrumbs splits "Books > Fiction > Thrillers" into its trimmed names.
// Blank segments are dropped.
func ParseBreadcrumbs(breadcrumb string) ([]string, error) {
	parts := strings.Split(breadcrumb, BreadcrumbSeparator)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return nil, ErrEmptyBreadcrumb
	}
	return names, nil
}
