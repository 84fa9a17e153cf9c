package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/shared"
)

// deleteAll removes every row of model; GORM refuses unconditioned deletes without AllowGlobalUpdate
func deleteAll(ctx context.Context, db *gorm.DB, model any) error {
	return db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// GormProductClassRepository implements ProductClassRepository using GORM
type GormProductClassRepository struct {
	db *gorm.DB
}

// NewGormProductClassRepository creates a new GormProductClassRepository
func NewGormProductClassRepository(db *gorm.DB) *GormProductClassRepository {
	return &GormProductClassRepository{db: db}
}

// FindByName finds a product class by exact name
func (r *GormProductClassRepository) FindByName(ctx context.Context, name string) (*catalog.ProductClass, error) {
	var class catalog.ProductClass
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&class).Error; err != nil {
		return nil, notFound(err)
	}
	return &class, nil
}

// FindByID finds a product class by its ID
func (r *GormProductClassRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ProductClass, error) {
	var class catalog.ProductClass
	if err := r.db.WithContext(ctx).First(&class, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &class, nil
}

// FindAll returns all product classes ordered by name
func (r *GormProductClassRepository) FindAll(ctx context.Context) ([]catalog.ProductClass, error) {
	var classes []catalog.ProductClass
	if err := r.db.WithContext(ctx).Order("name").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

// Save creates or updates a product class
func (r *GormProductClassRepository) Save(ctx context.Context, class *catalog.ProductClass) error {
	return r.db.WithContext(ctx).Save(class).Error
}

// DeleteAll removes every product class
func (r *GormProductClassRepository) DeleteAll(ctx context.Context) error {
	return deleteAll(ctx, r.db, &catalog.ProductClass{})
}

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	var category catalog.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

// FindRootByName finds a top-level category by exact name
func (r *GormCategoryRepository) FindRootByName(ctx context.Context, name string) (*catalog.Category, error) {
	var category catalog.Category
	if err := r.db.WithContext(ctx).
		Where("parent_id IS NULL AND name = ?", name).
		First(&category).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

// FindChildByName finds a direct child of parentID by exact name
func (r *GormCategoryRepository) FindChildByName(ctx context.Context, parentID uuid.UUID, name string) (*catalog.Category, error) {
	var category catalog.Category
	if err := r.db.WithContext(ctx).
		Where("parent_id = ? AND name = ?", parentID, name).
		First(&category).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

// FindAll returns every category in tree order
func (r *GormCategoryRepository) FindAll(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := r.db.WithContext(ctx).Order("full_name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindByProduct returns the categories linked to a product
func (r *GormCategoryRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := r.db.WithContext(ctx).
		Joins("JOIN product_categories pc ON pc.category_id = categories.id").
		Where("pc.product_id = ?", productID).
		Order("categories.full_name").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

// DeleteAll removes every category
func (r *GormCategoryRepository) DeleteAll(ctx context.Context) error {
	return deleteAll(ctx, r.db, &catalog.Category{})
}

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// FindByUPC finds a product by its UPC
func (r *GormProductRepository) FindByUPC(ctx context.Context, upc string) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).Where("upc = ?", upc).First(&product).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// FindByField returns at most limit products whose lookup field equals value
func (r *GormProductRepository) FindByField(ctx context.Context, field catalog.LookupField, value string, limit int) ([]catalog.Product, error) {
	if _, err := catalog.ParseLookupField(string(field)); err != nil {
		return nil, err
	}
	var products []catalog.Product
	query := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: field.Column()}, Value: value}).
		Order("created_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindAll returns a page of products and the total matching count
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Product{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(upc) LIKE ? ESCAPE '\'`, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []catalog.Product
	if err := r.applyFilter(query, filter).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, ProductSortFields, "title")
	query = query.Order(fmt.Sprintf("%s %s", field, ValidateSortOrder(filter.OrderDir)))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// LinkCategory links a product to a category, leaving an existing link untouched
func (r *GormProductRepository) LinkCategory(ctx context.Context, productID, categoryID uuid.UUID) error {
	link := catalog.ProductCategory{ProductID: productID, CategoryID: categoryID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
}

// DeleteAll removes every product/category link and every product
func (r *GormProductRepository) DeleteAll(ctx context.Context) error {
	if err := deleteAll(ctx, r.db, &catalog.ProductCategory{}); err != nil {
		return err
	}
	return deleteAll(ctx, r.db, &catalog.Product{})
}

// GormProductImageRepository implements ProductImageRepository using GORM
type GormProductImageRepository struct {
	db *gorm.DB
}

// NewGormProductImageRepository creates a new GormProductImageRepository
func NewGormProductImageRepository(db *gorm.DB) *GormProductImageRepository {
	return &GormProductImageRepository{db: db}
}

// FindByProduct returns a product's images in display order
func (r *GormProductImageRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.ProductImage, error) {
	var images []catalog.ProductImage
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("display_order, created_at").
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// Save creates or updates an image
func (r *GormProductImageRepository) Save(ctx context.Context, image *catalog.ProductImage) error {
	return r.db.WithContext(ctx).Save(image).Error
}

// Delete removes an image row
func (r *GormProductImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.ProductImage{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteAll removes every product image row
func (r *GormProductImageRepository) DeleteAll(ctx context.Context) error {
	return deleteAll(ctx, r.db, &catalog.ProductImage{})
}
