package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/shared"
)

// QueryService serves read-only catalogue views
type QueryService struct {
	repos   Repositories
	storage MediaStorage
}

// NewQueryService creates a new QueryService
func NewQueryService(repos Repositories, storage MediaStorage) *QueryService {
	return &QueryService{repos: repos, storage: storage}
}

// ListProducts returns a page of products
func (s *QueryService) ListProducts(ctx context.Context, filter shared.Filter) (*shared.Paginated[ProductResponse], error) {
	products, total, err := s.repos.Products().FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	classes, err := s.classNames(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]ProductResponse, len(products))
	for i := range products {
		items[i] = ToProductResponse(&products[i], classNameOf(&products[i], classes))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetProduct returns a product with its categories, stock records and images
func (s *QueryService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetailResponse, error) {
	p, err := s.repos.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	className := ""
	if p.ProductClassID != nil {
		class, err := s.repos.ProductClasses().FindByID(ctx, *p.ProductClassID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if class != nil {
			className = class.Name
		}
	}

	categories, err := s.repos.Categories().FindByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	records, err := s.repos.StockRecords().FindByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	images, err := s.repos.Images().FindByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	partners, err := s.partnerNames(ctx)
	if err != nil {
		return nil, err
	}

	resp := &ProductDetailResponse{
		ProductResponse: ToProductResponse(p, className),
		Description:     p.Description,
		Categories:      ToCategoryResponses(categories),
		StockRecords:    make([]StockRecordResponse, len(records)),
		Images:          make([]ImageResponse, len(images)),
	}
	for i := range records {
		resp.StockRecords[i] = ToStockRecordResponse(&records[i], partners[records[i].PartnerID])
	}
	for i, img := range images {
		resp.Images[i] = ImageResponse{
			ID:           img.ID,
			Original:     img.Original,
			URL:          s.storage.URL(img.Original),
			Caption:      img.Caption,
			DisplayOrder: img.DisplayOrder,
		}
	}
	return resp, nil
}

// ListCategories returns the category tree in breadcrumb order
func (s *QueryService) ListCategories(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.repos.Categories().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponses(categories), nil
}

// ListPartners returns all partners
func (s *QueryService) ListPartners(ctx context.Context) ([]PartnerResponse, error) {
	partners, err := s.repos.Partners().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PartnerResponse, len(partners))
	for i := range partners {
		out[i] = ToPartnerResponse(&partners[i])
	}
	return out, nil
}

func (s *QueryService) classNames(ctx context.Context) (map[uuid.UUID]string, error) {
	classes, err := s.repos.ProductClasses().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(classes))
	for _, c := range classes {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *QueryService) partnerNames(ctx context.Context) (map[uuid.UUID]string, error) {
	partners, err := s.repos.Partners().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(partners))
	for _, p := range partners {
		names[p.ID] = p.Name
	}
	return names, nil
}

func classNameOf(p *catalog.Product, names map[uuid.UUID]string) string {
	if p.ProductClassID == nil {
		return ""
	}
	return names[*p.ProductClassID]
}
