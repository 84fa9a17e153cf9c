package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogapp "github.com/shop/backend/internal/application/catalog"
	"github.com/shop/backend/internal/domain/address"
	"github.com/shop/backend/internal/domain/shared"
	"github.com/shop/backend/internal/interfaces/http/dto"
	"github.com/shop/backend/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockCatalogueReader is a mock implementation of CatalogueReader
type MockCatalogueReader struct {
	mock.Mock
}

func (m *MockCatalogueReader) ListProducts(ctx context.Context, filter shared.Filter) (*shared.Paginated[catalogapp.ProductResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[catalogapp.ProductResponse]), args.Error(1)
}

func (m *MockCatalogueReader) GetProduct(ctx context.Context, id uuid.UUID) (*catalogapp.ProductDetailResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductDetailResponse), args.Error(1)
}

func (m *MockCatalogueReader) ListCategories(ctx context.Context) ([]catalogapp.CategoryResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalogapp.CategoryResponse), args.Error(1)
}

func (m *MockCatalogueReader) ListPartners(ctx context.Context) ([]catalogapp.PartnerResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalogapp.PartnerResponse), args.Error(1)
}

// MockCountryLister is a mock implementation of CountryLister
type MockCountryLister struct {
	mock.Mock
}

func (m *MockCountryLister) ListCountries(ctx context.Context, shippingOnly bool) ([]address.Country, error) {
	args := m.Called(ctx, shippingOnly)
	return args.Get(0).([]address.Country), args.Error(1)
}

type pingerFunc func() error

func (f pingerFunc) Ping() error { return f() }

func newEngine(register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	register(r)
	return r
}

func TestCatalogHandler_ListProducts(t *testing.T) {
	reader := new(MockCatalogueReader)
	h := NewCatalogHandler(reader)
	r := newEngine(func(r *gin.Engine) { r.GET("/products", h.ListProducts) })

	t.Run("defaults and meta", func(t *testing.T) {
		page := shared.NewPaginated([]catalogapp.ProductResponse{{UPC: "9780000000001", Title: "Dune"}}, 21, 2, 20)
		reader.On("ListProducts", mock.Anything, shared.Filter{Page: 2, PageSize: 20, OrderDir: "asc", Search: "dune"}).
			Return(&page, nil).Once()

		w := testutil.Perform(r, http.MethodGet, "/products?page=2&search=dune")
		require.Equal(t, http.StatusOK, w.Code)

		resp := testutil.JSONResponseAs[dto.Response](t, w)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(21), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.TotalPages)
		items := resp.Data.([]interface{})
		require.Len(t, items, 1)
		assert.Equal(t, "Dune", items[0].(map[string]interface{})["title"])
	})

	t.Run("invalid query", func(t *testing.T) {
		w := testutil.Perform(r, http.MethodGet, "/products?page_size=1000")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		testutil.AssertErrorResponse(t, w, dto.ErrCodeBadRequest)

		w = testutil.Perform(r, http.MethodGet, "/products?order_dir=sideways")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unexpected error", func(t *testing.T) {
		reader.On("ListProducts", mock.Anything, mock.Anything).Return(nil, errors.New("disk on fire")).Once()

		w := testutil.Perform(r, http.MethodGet, "/products")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		testutil.AssertErrorResponse(t, w, dto.ErrCodeInternal)
		assert.NotContains(t, w.Body.String(), "disk on fire")
	})

	reader.AssertExpectations(t)
}

func TestCatalogHandler_GetProduct(t *testing.T) {
	reader := new(MockCatalogueReader)
	h := NewCatalogHandler(reader)
	r := newEngine(func(r *gin.Engine) { r.GET("/products/:id", h.GetProduct) })

	id := uuid.New()
	reader.On("GetProduct", mock.Anything, id).Return(&catalogapp.ProductDetailResponse{
		ProductResponse: catalogapp.ProductResponse{ID: id, Title: "Dune"},
		Description:     "Spice",
	}, nil)
	missing := uuid.New()
	reader.On("GetProduct", mock.Anything, missing).Return(nil, shared.ErrNotFound)

	w := testutil.Perform(r, http.MethodGet, "/products/"+id.String())
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.AssertSuccessResponse(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Spice", data["description"])

	w = testutil.Perform(r, http.MethodGet, "/products/"+missing.String())
	assert.Equal(t, http.StatusNotFound, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeNotFound)

	w = testutil.Perform(r, http.MethodGet, "/products/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reader.AssertExpectations(t)
}

func TestCatalogHandler_Lists(t *testing.T) {
	reader := new(MockCatalogueReader)
	h := NewCatalogHandler(reader)
	r := newEngine(func(r *gin.Engine) {
		r.GET("/categories", h.ListCategories)
		r.GET("/partners", h.ListPartners)
	})

	reader.On("ListCategories", mock.Anything).Return([]catalogapp.CategoryResponse{
		{Name: "Books", FullName: "Books"},
		{Name: "Fiction", FullName: "Books > Fiction", Depth: 1},
	}, nil)
	reader.On("ListPartners", mock.Anything).
		Return([]catalogapp.PartnerResponse(nil), shared.NewDomainError("SOMETHING_ODD", "odd"))

	w := testutil.Perform(r, http.MethodGet, "/categories")
	resp := testutil.AssertSuccessResponse(t, w)
	assert.Len(t, resp["data"], 2)

	w = testutil.Perform(r, http.MethodGet, "/partners")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	testutil.AssertErrorResponse(t, w, "SOMETHING_ODD")
}

func TestCountryHandler_ListCountries(t *testing.T) {
	lister := new(MockCountryLister)
	h := NewCountryHandler(lister)
	r := newEngine(func(r *gin.Engine) { r.GET("/countries", h.ListCountries) })

	gb := address.Country{Code: "GB", PrintableName: "United Kingdom", IsShippingCountry: true}
	fr := address.Country{Code: "FR", PrintableName: "France"}
	lister.On("ListCountries", mock.Anything, false).Return([]address.Country{gb, fr}, nil)
	lister.On("ListCountries", mock.Anything, true).Return([]address.Country{gb}, nil)

	resp := testutil.AssertSuccessResponse(t, testutil.Perform(r, http.MethodGet, "/countries"))
	assert.Len(t, resp["data"], 2)

	resp = testutil.AssertSuccessResponse(t, testutil.Perform(r, http.MethodGet, "/countries?shipping=true"))
	assert.Len(t, resp["data"], 1)

	w := testutil.Perform(r, http.MethodGet, "/countries?shipping=maybe")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	lister.AssertExpectations(t)
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewSystemHandler("shop", pingerFunc(func() error { return nil }))
		c, w := testutil.NewTestContext(t, http.MethodGet, "/health")
		h.Health(c)

		require.Equal(t, http.StatusOK, w.Code)
		resp := testutil.AssertSuccessResponse(t, w)
		data := resp["data"].(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
		assert.Equal(t, "shop", data["name"])
	})

	t.Run("database down", func(t *testing.T) {
		h := NewSystemHandler("shop", pingerFunc(func() error { return errors.New("refused") }))
		c, w := testutil.NewTestContext(t, http.MethodGet, "/health")
		c.Set("request_id", "req-1")
		h.Health(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		testutil.AssertErrorResponse(t, w, dto.ErrCodeUnavailable)
		assert.Contains(t, w.Body.String(), "req-1")
	})
}
