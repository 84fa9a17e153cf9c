package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/partner"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/domain/shared/valueobject"
	"github.com/shop/backend/internal/infrastructure/fixture"
	"go.uber.org/zap"
)

// LoadResult counts what a fixture load touched
type LoadResult struct {
	ProductClasses int `json:"product_classes"`
	Partners       int `json:"partners"`
	Categories     int `json:"categories"`
	Products       int `json:"products"`
	StockRecords   int `json:"stock_records"`
}

// Loader writes fixture documents into the catalogue
type Loader struct {
	scope    TransactionScope
	currency valueobject.Currency
	logger   *zap.Logger
}

// NewLoader creates a loader. Prices are stored in currency.
func NewLoader(scope TransactionScope, currency valueobject.Currency, logger *zap.Logger) *Loader {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{scope: scope, currency: currency, logger: logger}
}

// ClearCatalogue deletes categories, partners, products, product categories,
// product classes, stock records and product images. Stored media files are
// left in place.
func (l *Loader) ClearCatalogue(ctx context.Context) error {
	return l.scope.Execute(ctx, func(repos Repositories) error {
		// Children first so foreign keys hold at every step.
		steps := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"stock records", repos.StockRecords().DeleteAll},
			{"product images", repos.Images().DeleteAll},
			{"products", repos.Products().DeleteAll},
			{"categories", repos.Categories().DeleteAll},
			{"partners", repos.Partners().DeleteAll},
			{"product classes", repos.ProductClasses().DeleteAll},
		}
		for _, step := range steps {
			if err := step.fn(ctx); err != nil {
				return fmt.Errorf("clearing %s: %w", step.name, err)
			}
		}
		l.logger.Info("Catalogue cleared")
		return nil
	})
}

// LoadFixture loads product classes, partners, categories and stock records
// from doc in a single transaction.
func (l *Loader) LoadFixture(ctx context.Context, doc *fixture.Document) (*LoadResult, error) {
	if doc == nil {
		return nil, shared.NewDomainError("INVALID_FIXTURE", "Fixture document is required")
	}

	var result *LoadResult
	err := l.scope.Execute(ctx, func(repos Repositories) error {
		s := newLoadSession(repos, l.currency)

		for _, pc := range doc.ProductClasses {
			if _, err := s.productClass(ctx, pc.Name); err != nil {
				return fmt.Errorf("product class %q: %w", pc.Name, err)
			}
		}
		for _, p := range doc.Partners {
			if _, err := s.partner(ctx, p.Name); err != nil {
				return fmt.Errorf("partner %q: %w", p.Name, err)
			}
		}
		for _, c := range doc.Categories {
			if _, err := s.category(ctx, c.Name); err != nil {
				return fmt.Errorf("category %q: %w", c.Name, err)
			}
		}
		for i := range doc.Stock {
			if err := s.stockRecord(ctx, &doc.Stock[i]); err != nil {
				return fmt.Errorf("stock record %q: %w", doc.Stock[i].PartnerSKU, err)
			}
		}

		result = s.result()
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Fixture loaded",
		zap.Int("product_classes", result.ProductClasses),
		zap.Int("partners", result.Partners),
		zap.Int("categories", result.Categories),
		zap.Int("products", result.Products),
		zap.Int("stock_records", result.StockRecords))
	return result, nil
}

// loadSession memoises get-or-create lookups within one transaction
type loadSession struct {
	repos      Repositories
	currency   valueobject.Currency
	classes    map[string]*catalog.ProductClass
	partners   map[string]*partner.Partner
	categories map[string]*catalog.Category
	products   map[string]*catalog.Product
	stock      int
}

func newLoadSession(repos Repositories, currency valueobject.Currency) *loadSession {
	return &loadSession{
		repos:      repos,
		currency:   currency,
		classes:    make(map[string]*catalog.ProductClass),
		partners:   make(map[string]*partner.Partner),
		categories: make(map[string]*catalog.Category),
		products:   make(map[string]*catalog.Product),
	}
}

func (s *loadSession) result() *LoadResult {
	return &LoadResult{
		ProductClasses: len(s.classes),
		Partners:       len(s.partners),
		Categories:     len(s.categories),
		Products:       len(s.products),
		StockRecords:   s.stock,
	}
}

func (s *loadSession) productClass(ctx context.Context, name string) (*catalog.ProductClass, error) {
	name = strings.TrimSpace(name)
	if c, ok := s.classes[name]; ok {
		return c, nil
	}

	c, err := s.repos.ProductClasses().FindByName(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		if c, err = catalog.NewProductClass(name); err != nil {
			return nil, err
		}
		err = s.repos.ProductClasses().Save(ctx, c)
	}
	if err != nil {
		return nil, err
	}

	s.classes[name] = c
	return c, nil
}

func (s *loadSession) partner(ctx context.Context, name string) (*partner.Partner, error) {
	name = strings.TrimSpace(name)
	if p, ok := s.partners[name]; ok {
		return p, nil
	}

	p, err := s.repos.Partners().FindByName(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		if p, err = partner.NewPartner(name); err != nil {
			return nil, err
		}
		err = s.repos.Partners().Save(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	s.partners[name] = p
	return p, nil
}

// category walks the breadcrumb from the root, creating missing levels, and
// returns the leaf.
func (s *loadSession) category(ctx context.Context, breadcrumb string) (*catalog.Category, error) {
	names, err := catalog.ParseBreadcrumbs(breadcrumb)
	if err != nil {
		return nil, err
	}

	var parent *catalog.Category
	for i, name := range names {
		key := strings.Join(names[:i+1], "\x00")
		if c, ok := s.categories[key]; ok {
			parent = c
			continue
		}

		var c *catalog.Category
		if parent == nil {
			c, err = s.repos.Categories().FindRootByName(ctx, name)
		} else {
			c, err = s.repos.Categories().FindChildByName(ctx, parent.ID, name)
		}
		if errors.Is(err, shared.ErrNotFound) {
			if parent == nil {
				c, err = catalog.NewCategory(name)
			} else {
				c, err = catalog.NewChildCategory(name, parent)
			}
			if err != nil {
				return nil, err
			}
			err = s.repos.Categories().Save(ctx, c)
		}
		if err != nil {
			return nil, err
		}

		s.categories[key] = c
		parent = c
	}
	return parent, nil
}

func (s *loadSession) product(ctx context.Context, item *fixture.ProductItem) (*catalog.Product, error) {
	p, err := s.repos.Products().FindByUPC(ctx, strings.TrimSpace(item.UPC))
	if errors.Is(err, shared.ErrNotFound) {
		p, err = catalog.NewProduct(item.UPC)
	}
	if err != nil {
		return nil, err
	}

	var class *catalog.ProductClass
	if strings.TrimSpace(item.ProductClass.Name) != "" {
		if class, err = s.productClass(ctx, item.ProductClass.Name); err != nil {
			return nil, err
		}
	}
	if err := p.Describe(item.Title, item.Description, class); err != nil {
		return nil, err
	}
	if err := s.repos.Products().Save(ctx, p); err != nil {
		return nil, err
	}

	for _, ref := range item.Categories {
		c, err := s.category(ctx, ref.Name)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", ref.Name, err)
		}
		if err := s.repos.Products().LinkCategory(ctx, p.ID, c.ID); err != nil {
			return nil, err
		}
	}

	s.products[p.UPC] = p
	return p, nil
}

func (s *loadSession) stockRecord(ctx context.Context, item *fixture.StockItem) error {
	rec, err := s.repos.StockRecords().FindByPartnerSKU(ctx, strings.TrimSpace(item.PartnerSKU))
	if errors.Is(err, shared.ErrNotFound) {
		rec, err = partner.NewStockRecord(item.PartnerSKU)
	}
	if err != nil {
		return err
	}

	product, err := s.product(ctx, &item.Product)
	if err != nil {
		return fmt.Errorf("product %q: %w", item.Product.UPC, err)
	}
	p, err := s.partner(ctx, item.Partner.Name)
	if err != nil {
		return fmt.Errorf("partner %q: %w", item.Partner.Name, err)
	}

	price, err := valueobject.NewMoneyFromString(strings.TrimSpace(item.Price), s.currency)
	if err != nil {
		return shared.NewDomainError("INVALID_PRICE", fmt.Sprintf("Invalid price %q", item.Price))
	}
	if err := rec.SetPrice(price); err != nil {
		return err
	}
	if err := rec.SetStock(item.NumInStock); err != nil {
		return err
	}
	rec.Assign(product.ID, p.ID)

	if err := s.repos.StockRecords().Save(ctx, rec); err != nil {
		return err
	}
	s.stock++
	return nil
}
