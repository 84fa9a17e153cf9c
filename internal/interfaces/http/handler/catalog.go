package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/shop/backend/internal/application/catalog"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/interfaces/http/dto"
)

// CatalogueReader is the query side of the catalogue
type CatalogueReader interface {
	ListProducts(ctx context.Context, filter shared.Filter) (*shared.Paginated[catalogapp.ProductResponse], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*catalogapp.ProductDetailResponse, error)
	ListCategories(ctx context.Context) ([]catalogapp.CategoryResponse, error)
	ListPartners(ctx context.Context) ([]catalogapp.PartnerResponse, error)
}

// CatalogHandler handles catalogue API endpoints
type CatalogHandler struct {
	BaseHandler
	reader CatalogueReader
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(reader CatalogueReader) *CatalogHandler {
	return &CatalogHandler{reader: reader}
}

// ListProducts returns a page of products.
// Query: page, page_size, order_by, order_dir, search
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.reader.ListProducts(c.Request.Context(), req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(200, dto.NewPaginatedResponse(page))
}

// GetProduct returns one product with its categories, stock records and images
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	product, err := h.reader.GetProduct(c.Request.Context(), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ListCategories returns the whole category tree in breadcrumb order
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.reader.ListCategories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}

// ListPartners returns every fulfilment partner
func (h *CatalogHandler) ListPartners(c *gin.Context) {
	partners, err := h.reader.ListPartners(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, partners)
}
