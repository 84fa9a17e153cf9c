package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/partner"
	"github.com/shop/backend/internal/domain/shared/valueobject"
)

// ProductResponse is the list view of a product
type ProductResponse struct {
	ID           uuid.UUID `json:"id"`
	UPC          string    `json:"upc"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	ProductClass string    `json:"product_class,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductDetailResponse is a product with its categories, stock and images
type ProductDetailResponse struct {
	ProductResponse
	Description  string                `json:"description"`
	Categories   []CategoryResponse    `json:"categories"`
	StockRecords []StockRecordResponse `json:"stock_records"`
	Images       []ImageResponse       `json:"images"`
}

// CategoryResponse is a category node
type CategoryResponse struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	FullName string     `json:"full_name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Depth    int        `json:"depth"`
}

// StockRecordResponse is a partner's offer
type StockRecordResponse struct {
	ID         uuid.UUID         `json:"id"`
	PartnerID  uuid.UUID         `json:"partner_id"`
	Partner    string            `json:"partner,omitempty"`
	PartnerSKU string            `json:"partner_sku"`
	Price      valueobject.Money `json:"price"`
	NumInStock int               `json:"num_in_stock"`
}

// ImageResponse is a product image with its public URL
type ImageResponse struct {
	ID           uuid.UUID `json:"id"`
	Original     string    `json:"original"`
	URL          string    `json:"url"`
	Caption      string    `json:"caption,omitempty"`
	DisplayOrder int       `json:"display_order"`
}

// PartnerResponse is a fulfilment partner
type PartnerResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

// ToProductResponse converts a product; className may be empty
func ToProductResponse(p *catalog.Product, className string) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		UPC:          p.UPC,
		Title:        p.Title,
		Slug:         p.Slug,
		ProductClass: className,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ToCategoryResponse converts a category
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:       c.ID,
		Name:     c.Name,
		Slug:     c.Slug,
		FullName: c.FullName,
		ParentID: c.ParentID,
		Depth:    c.Depth,
	}
}

// ToCategoryResponses converts a slice of categories
func ToCategoryResponses(categories []catalog.Category) []CategoryResponse {
	out := make([]CategoryResponse, len(categories))
	for i := range categories {
		out[i] = ToCategoryResponse(&categories[i])
	}
	return out
}

// ToStockRecordResponse converts a stock record; partnerName may be empty
func ToStockRecordResponse(s *partner.StockRecord, partnerName string) StockRecordResponse {
	return StockRecordResponse{
		ID:         s.ID,
		PartnerID:  s.PartnerID,
		Partner:    partnerName,
		PartnerSKU: s.PartnerSKU,
		Price:      s.PriceMoney(),
		NumInStock: s.NumInStock,
	}
}

// ToPartnerResponse converts a partner
func ToPartnerResponse(p *partner.Partner) PartnerResponse {
	return PartnerResponse{ID: p.ID, Name: p.Name, Code: p.Code}
}
