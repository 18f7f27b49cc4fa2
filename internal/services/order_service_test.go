package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OrderServiceTestSuite struct {
	suite.Suite
	orderRepo    *MockOrderRepository
	customerRepo *MockCustomerRepository
	productRepo  *MockProductRepository
	cache        *MockCacheService
	service      OrderService
	ctx          context.Context
	customer     *models.Customer
	product      *models.Product
}

func (suite *OrderServiceTestSuite) SetupTest() {
	suite.orderRepo = new(MockOrderRepository)
	suite.customerRepo = new(MockCustomerRepository)
	suite.productRepo = new(MockProductRepository)
	suite.cache = new(MockCacheService)
	suite.service = NewOrderService(suite.orderRepo, nil, suite.customerRepo, suite.productRepo, suite.cache)
	suite.ctx = context.Background()
	suite.customer = &models.Customer{ID: uuid.New(), Name: "Ana", Document: "123"}
	suite.product = &models.Product{ID: uuid.New(), Name: "Widget", SKU: "W-1", Price: decimal.RequireFromString("10.00"), StockQty: 5, IsActive: true}
}

func (suite *OrderServiceTestSuite) TearDownTest() {
	suite.orderRepo.AssertExpectations(suite.T())
	suite.customerRepo.AssertExpectations(suite.T())
	suite.productRepo.AssertExpectations(suite.T())
	suite.cache.AssertExpectations(suite.T())
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (suite *OrderServiceTestSuite) lines(quantities ...int) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(quantities))
	for _, q := range quantities {
		lines = append(lines, models.OrderLine{ProductID: suite.product.ID, Quantity: q})
	}
	return lines
}

// expectFreshKey sets up a key with no cached, committed or in-flight order.
func (suite *OrderServiceTestSuite) expectFreshKey(key string) {
	suite.cache.On("GetOrderIDForKey", suite.ctx, key).Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, key).Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetIdempotencyKey", suite.ctx, key).Return(nil, nil).Once()
}

func (suite *OrderServiceTestSuite) expectValidRequest() {
	suite.customerRepo.On("GetByID", suite.ctx, suite.customer.ID).Return(suite.customer, nil).Once()
	suite.productRepo.On("GetByID", suite.ctx, suite.product.ID).Return(suite.product, nil).Once()
}

func (suite *OrderServiceTestSuite) TestCreateOrder_Success() {
	suite.expectFreshKey("k1")
	suite.expectValidRequest()

	var saved *models.Order
	suite.orderRepo.On("SaveOrderTransaction", suite.ctx, mock.AnythingOfType("*models.Order"), mock.AnythingOfType("*models.IdempotencyKey"),
		[]models.StockDecrement{{ProductID: suite.product.ID, Quantity: 2}}).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Order) }).
		Return(uuid.New(), nil).Once()
	suite.cache.On("SetOrderIDForKey", suite.ctx, "k1", mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
	suite.cache.On("DeleteProduct", suite.ctx, suite.product.ID).Return(nil).Once()

	id, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(2), "k1")
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), uuid.Nil, id)

	require.NotNil(suite.T(), saved)
	assert.True(suite.T(), saved.TotalAmount.Equal(decimal.RequireFromString("20.00")))
	require.NotNil(suite.T(), saved.IdempotencyKey)
	assert.Equal(suite.T(), "k1", *saved.IdempotencyKey)
	assert.Equal(suite.T(), models.OrderStatusCreated, saved.Status)
	require.Len(suite.T(), saved.Items, 1)
	assert.True(suite.T(), saved.Items[0].UnitPrice.Equal(suite.product.Price))
}

func (suite *OrderServiceTestSuite) TestCreateOrder_ReplaysCommittedOrder() {
	existing := uuid.New()
	suite.cache.On("GetOrderIDForKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(existing, true, nil).Once()
	suite.cache.On("SetOrderIDForKey", suite.ctx, "k1", existing).Return(nil).Once()

	// Payload is not validated on replay
	id, err := suite.service.CreateOrder(suite.ctx, uuid.New(), []models.OrderLine{{ProductID: uuid.New(), Quantity: -1}}, "k1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), existing, id)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_ReplaysFromCache() {
	existing := uuid.New()
	suite.cache.On("GetOrderIDForKey", suite.ctx, "k1").Return(existing, true, nil).Once()
	suite.orderRepo.On("GetByID", suite.ctx, existing).Return(&models.Order{ID: existing}, nil).Once()

	id, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), existing, id)
	suite.orderRepo.AssertNotCalled(suite.T(), "GetOrderIDByKey", mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_StaleCacheEntryIsIgnored() {
	stale := uuid.New()
	suite.cache.On("GetOrderIDForKey", suite.ctx, "k1").Return(stale, true, nil).Once()
	suite.orderRepo.On("GetByID", suite.ctx, stale).Return(nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, stale)).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetIdempotencyKey", suite.ctx, "k1").Return(nil, nil).Once()
	suite.expectValidRequest()
	suite.orderRepo.On("SaveOrderTransaction", suite.ctx, mock.AnythingOfType("*models.Order"), mock.AnythingOfType("*models.IdempotencyKey"), mock.Anything).
		Return(uuid.New(), nil).Once()
	suite.cache.On("SetOrderIDForKey", suite.ctx, "k1", mock.AnythingOfType("uuid.UUID")).Return(nil).Once()
	suite.cache.On("DeleteProduct", suite.ctx, suite.product.ID).Return(nil).Once()

	id, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), stale, id)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_CacheDownFallsBackToStore() {
	existing := uuid.New()
	suite.cache.On("GetOrderIDForKey", suite.ctx, "k1").Return(uuid.Nil, false, errors.New("circuit breaker is open")).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(existing, true, nil).Once()
	suite.cache.On("SetOrderIDForKey", suite.ctx, "k1", existing).Return(errors.New("circuit breaker is open")).Once()

	id, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), existing, id)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_InFlightKey() {
	suite.cache.On("GetOrderIDForKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetIdempotencyKey", suite.ctx, "k1").Return(&models.IdempotencyKey{Key: "k1"}, nil).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	assert.ErrorIs(suite.T(), err, models.ErrDuplicateRequest)
	assert.Contains(suite.T(), err.Error(), "k1")
}

func (suite *OrderServiceTestSuite) TestCreateOrder_KeyCommittedBetweenLookups() {
	winner := uuid.New()
	suite.cache.On("GetOrderIDForKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetIdempotencyKey", suite.ctx, "k1").Return(&models.IdempotencyKey{Key: "k1"}, nil).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(winner, true, nil).Once()
	suite.cache.On("SetOrderIDForKey", suite.ctx, "k1", winner).Return(nil).Once()

	id, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), winner, id)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_BlankKey() {
	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "  ")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidArgument)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_NilItems() {
	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, nil, "k1")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidArgument)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_CustomerNotFound() {
	suite.expectFreshKey("k2")
	missing := uuid.New()
	suite.customerRepo.On("GetByID", suite.ctx, missing).Return(nil, models.ErrCustomerNotFound).Once()

	_, err := suite.service.CreateOrder(suite.ctx, missing, suite.lines(1), "k2")
	assert.ErrorIs(suite.T(), err, models.ErrCustomerNotFound)
	suite.orderRepo.AssertNotCalled(suite.T(), "SaveOrderTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_EmptyItems() {
	suite.expectFreshKey("k1")
	suite.customerRepo.On("GetByID", suite.ctx, suite.customer.ID).Return(suite.customer, nil).Once()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, []models.OrderLine{}, "k1")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidOrder)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_InvalidQuantity() {
	suite.expectFreshKey("k1")
	suite.customerRepo.On("GetByID", suite.ctx, suite.customer.ID).Return(suite.customer, nil).Once()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1, 0), "k1")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidQuantity)
	assert.Contains(suite.T(), err.Error(), suite.product.ID.String())
}

func (suite *OrderServiceTestSuite) TestCreateOrder_ProductNotFound() {
	suite.expectFreshKey("k1")
	suite.customerRepo.On("GetByID", suite.ctx, suite.customer.ID).Return(suite.customer, nil).Once()
	missing := uuid.New()
	suite.productRepo.On("GetByID", suite.ctx, missing).Return(nil, models.ErrProductNotFound).Once()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, []models.OrderLine{{ProductID: missing, Quantity: 1}}, "k1")
	assert.ErrorIs(suite.T(), err, models.ErrProductNotFound)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_AccumulatesDemandPerProduct() {
	suite.expectFreshKey("k1")
	suite.expectValidRequest()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(3, 3), "k1")

	var stockErr *models.InsufficientStockError
	require.True(suite.T(), errors.As(err, &stockErr))
	assert.Equal(suite.T(), 5, stockErr.Available)
	assert.Equal(suite.T(), 6, stockErr.Requested)
	assert.Equal(suite.T(), suite.product.ID, stockErr.ProductID)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_RaceRecovery() {
	winner := uuid.New()
	suite.expectFreshKey("k1")
	suite.expectValidRequest()
	suite.orderRepo.On("SaveOrderTransaction", suite.ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(uuid.Nil, models.ErrIdempotencyConflict).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(winner, true, nil).Once()
	suite.cache.On("SetOrderIDForKey", suite.ctx, "k1", winner).Return(nil).Once()

	id, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), winner, id)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_RaceWithoutCommittedOrder() {
	suite.expectFreshKey("k1")
	suite.expectValidRequest()
	suite.orderRepo.On("SaveOrderTransaction", suite.ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(uuid.Nil, models.ErrIdempotencyConflict).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	assert.ErrorIs(suite.T(), err, models.ErrDuplicateRequest)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_CommitFailure() {
	suite.expectFreshKey("k1")
	suite.expectValidRequest()
	suite.orderRepo.On("SaveOrderTransaction", suite.ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(uuid.Nil, errors.New("connection reset")).Once()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	assert.ErrorIs(suite.T(), err, models.ErrCommitFailure)
	assert.NotErrorIs(suite.T(), err, models.ErrDuplicateRequest)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_StockConsumedBeforeCommit() {
	suite.expectFreshKey("k1")
	suite.expectValidRequest()
	suite.orderRepo.On("SaveOrderTransaction", suite.ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(uuid.Nil, &models.InsufficientStockError{ProductID: suite.product.ID, Available: 1, Requested: 2}).Once()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(2), "k1")
	assert.ErrorIs(suite.T(), err, models.ErrCommitFailure)
	assert.ErrorIs(suite.T(), err, models.ErrInsufficientStock)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_StoreLookupFails() {
	suite.cache.On("GetOrderIDForKey", suite.ctx, "k1").Return(uuid.Nil, false, nil).Once()
	suite.orderRepo.On("GetOrderIDByKey", suite.ctx, "k1").Return(uuid.Nil, false, errors.New("timeout")).Once()

	_, err := suite.service.CreateOrder(suite.ctx, suite.customer.ID, suite.lines(1), "k1")
	require.Error(suite.T(), err)
	suite.customerRepo.AssertNotCalled(suite.T(), "GetByID", mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestUpdateOrderStatus() {
	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusCreated}
	suite.orderRepo.On("GetByID", suite.ctx, order.ID).Return(order, nil).Once()
	suite.orderRepo.On("UpdateStatus", suite.ctx, order.ID, models.OrderStatusCreated, models.OrderStatusPaid).Return(nil).Once()

	updated, err := suite.service.UpdateOrderStatus(suite.ctx, order.ID, models.OrderStatusPaid)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OrderStatusPaid, updated.Status)
}

func (suite *OrderServiceTestSuite) TestUpdateOrderStatus_TerminalState() {
	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusCancelled}
	suite.orderRepo.On("GetByID", suite.ctx, order.ID).Return(order, nil).Once()

	_, err := suite.service.UpdateOrderStatus(suite.ctx, order.ID, models.OrderStatusPaid)
	assert.ErrorIs(suite.T(), err, models.ErrInvalidStatusTransition)
}

func (suite *OrderServiceTestSuite) TestListOrders_RejectsUnknownSort() {
	_, err := suite.service.ListOrders(suite.ctx, &models.OrderListFilter{SortBy: "total"})
	assert.ErrorIs(suite.T(), err, models.ErrInvalidArgument)
}
