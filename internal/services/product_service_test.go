package services

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ProductServiceTestSuite defines the test suite
type ProductServiceTestSuite struct {
	suite.Suite
	mockProductRepo *MockProductRepository
	mockCache       *MockCacheService
	service         ProductService
	ctx             context.Context
}

func (suite *ProductServiceTestSuite) SetupTest() {
	suite.mockProductRepo = &MockProductRepository{}
	suite.mockCache = &MockCacheService{}
	suite.service = NewProductService(suite.mockProductRepo, suite.mockCache)
	suite.ctx = context.Background()
}

func (suite *ProductServiceTestSuite) TearDownTest() {
	suite.mockProductRepo.AssertExpectations(suite.T())
	suite.mockCache.AssertExpectations(suite.T())
}

func TestProductServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ProductServiceTestSuite))
}

func (suite *ProductServiceTestSuite) TestCreate_ProductSuccess() {
	product := &models.Product{
		Name:     " Widget ",
		SKU:      "W-1",
		Price:    decimal.RequireFromString("10.99"),
		StockQty: 100,
		IsActive: true,
	}

	suite.mockProductRepo.On("Create", suite.ctx, product).Return(nil).Once()

	err := suite.service.Create(suite.ctx, product)

	assert.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), uuid.Nil, product.ID)
	assert.False(suite.T(), product.CreatedAt.IsZero())
	assert.Equal(suite.T(), "Widget", product.Name)
}

func (suite *ProductServiceTestSuite) TestCreate_ProductValidation() {
	cases := map[string]*models.Product{
		"name required":  {SKU: "W-1", Price: decimal.RequireFromString("1")},
		"sku required":   {Name: "Widget", Price: decimal.RequireFromString("1")},
		"negative price": {Name: "Widget", SKU: "W-1", Price: decimal.RequireFromString("-0.01")},
		"negative stock": {Name: "Widget", SKU: "W-1", Price: decimal.RequireFromString("1"), StockQty: -1},
	}
	for name, product := range cases {
		suite.Run(name, func() {
			err := suite.service.Create(suite.ctx, product)
			assert.ErrorIs(suite.T(), err, models.ErrInvalidArgument)
		})
	}

	err := suite.service.Create(suite.ctx, nil)
	assert.ErrorIs(suite.T(), err, models.ErrInvalidArgument)
	suite.mockProductRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *ProductServiceTestSuite) TestGetByID_CacheHit() {
	product := &models.Product{ID: uuid.New(), Name: "Widget"}
	suite.mockCache.On("GetProduct", suite.ctx, product.ID).Return(product, nil).Once()

	got, err := suite.service.GetByID(suite.ctx, product.ID)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), product, got)
	suite.mockProductRepo.AssertNotCalled(suite.T(), "GetByID", mock.Anything, mock.Anything)
}

func (suite *ProductServiceTestSuite) TestGetByID_CacheMissPopulatesCache() {
	product := &models.Product{ID: uuid.New(), Name: "Widget"}
	suite.mockCache.On("GetProduct", suite.ctx, product.ID).Return(nil, nil).Once()
	suite.mockProductRepo.On("GetByID", suite.ctx, product.ID).Return(product, nil).Once()
	suite.mockCache.On("SetProduct", suite.ctx, product).Return(nil).Once()

	got, err := suite.service.GetByID(suite.ctx, product.ID)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), product, got)
}

func (suite *ProductServiceTestSuite) TestGetByID_CacheErrorsAreIgnored() {
	product := &models.Product{ID: uuid.New(), Name: "Widget"}
	suite.mockCache.On("GetProduct", suite.ctx, product.ID).Return(nil, errors.New("circuit breaker is open")).Once()
	suite.mockProductRepo.On("GetByID", suite.ctx, product.ID).Return(product, nil).Once()
	suite.mockCache.On("SetProduct", suite.ctx, product).Return(errors.New("circuit breaker is open")).Once()

	got, err := suite.service.GetByID(suite.ctx, product.ID)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), product, got)
}

func (suite *ProductServiceTestSuite) TestGetByID_NotFound() {
	id := uuid.New()
	suite.mockCache.On("GetProduct", suite.ctx, id).Return(nil, nil).Once()
	suite.mockProductRepo.On("GetByID", suite.ctx, id).Return(nil, models.ErrProductNotFound).Once()

	_, err := suite.service.GetByID(suite.ctx, id)

	assert.ErrorIs(suite.T(), err, models.ErrProductNotFound)
	suite.mockCache.AssertNotCalled(suite.T(), "SetProduct", mock.Anything, mock.Anything)
}

func (suite *ProductServiceTestSuite) TestUpdate_EvictsCache() {
	product := &models.Product{ID: uuid.New(), Name: "Widget", SKU: "W-1", Price: decimal.RequireFromString("3.50"), StockQty: 4}
	suite.mockProductRepo.On("Update", suite.ctx, product).Return(nil).Once()
	suite.mockCache.On("DeleteProduct", suite.ctx, product.ID).Return(nil).Once()

	err := suite.service.Update(suite.ctx, product)

	assert.NoError(suite.T(), err)
}

func (suite *ProductServiceTestSuite) TestUpdate_RepositoryErrorSkipsEviction() {
	product := &models.Product{ID: uuid.New(), Name: "Widget", SKU: "W-1"}
	suite.mockProductRepo.On("Update", suite.ctx, product).Return(models.ErrProductNotFound).Once()

	err := suite.service.Update(suite.ctx, product)

	assert.ErrorIs(suite.T(), err, models.ErrProductNotFound)
	suite.mockCache.AssertNotCalled(suite.T(), "DeleteProduct", mock.Anything, mock.Anything)
}

func (suite *ProductServiceTestSuite) TestDelete_EvictionFailureIsNotReturned() {
	id := uuid.New()
	suite.mockProductRepo.On("Delete", suite.ctx, id).Return(nil).Once()
	suite.mockCache.On("DeleteProduct", suite.ctx, id).Return(errors.New("connection refused")).Once()

	err := suite.service.Delete(suite.ctx, id)

	assert.NoError(suite.T(), err)
}

func (suite *ProductServiceTestSuite) TestLowStock() {
	low := []*models.Product{{ID: uuid.New(), Name: "Widget", StockQty: 2}}
	suite.mockProductRepo.On("List", suite.ctx, mock.MatchedBy(func(f *models.ProductFilter) bool {
		return f.ActiveOnly && f.MaxStock != nil && *f.MaxStock == 5
	})).Return(low, nil).Once()

	got, err := suite.service.LowStock(suite.ctx, 5)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), low, got)
}

func (suite *ProductServiceTestSuite) TestLowStock_NegativeThreshold() {
	_, err := suite.service.LowStock(suite.ctx, -1)
	assert.ErrorIs(suite.T(), err, models.ErrInvalidArgument)
}

func TestProductService_WithoutCache(t *testing.T) {
	repo := &MockProductRepository{}
	service := NewProductService(repo, nil)
	product := &models.Product{ID: uuid.New(), Name: "Widget"}
	repo.On("GetByID", mock.Anything, product.ID).Return(product, nil).Once()
	repo.On("Delete", mock.Anything, product.ID).Return(nil).Once()

	got, err := service.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product, got)
	require.NoError(t, service.Delete(context.Background(), product.ID))

	repo.AssertExpectations(t)
}

func TestCustomerService(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns id", func(t *testing.T) {
		repo := &MockCustomerRepository{}
		service := NewCustomerService(repo)
		customer := &models.Customer{Name: "Ana", Email: " ana@example.com ", Document: "123"}
		repo.On("Create", ctx, customer).Return(nil).Once()

		require.NoError(t, service.Create(ctx, customer))
		assert.NotEqual(t, uuid.Nil, customer.ID)
		assert.Equal(t, "ana@example.com", customer.Email)
		repo.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		service := NewCustomerService(&MockCustomerRepository{})
		for _, customer := range []*models.Customer{
			nil,
			{Email: "ana@example.com", Document: "123"},
			{Name: "Ana", Email: "not-an-email", Document: "123"},
			{Name: "Ana", Email: "ana@example.com"},
		} {
			assert.ErrorIs(t, service.Create(ctx, customer), models.ErrInvalidArgument)
		}
	})

	t.Run("duplicate document", func(t *testing.T) {
		repo := &MockCustomerRepository{}
		service := NewCustomerService(repo)
		customer := &models.Customer{Name: "Ana", Email: "ana@example.com", Document: "123"}
		repo.On("Create", ctx, customer).Return(models.ErrConflict).Once()

		assert.ErrorIs(t, service.Create(ctx, customer), models.ErrConflict)
	})

	t.Run("list passes paging", func(t *testing.T) {
		repo := &MockCustomerRepository{}
		service := NewCustomerService(repo)
		repo.On("List", ctx, 10, 20).Return([]*models.Customer{}, nil).Once()

		customers, err := service.List(ctx, 10, 20)
		require.NoError(t, err)
		assert.Empty(t, customers)
		repo.AssertExpectations(t)
	})
}
