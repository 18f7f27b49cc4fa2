package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"storefront/internal/caching"
	"storefront/internal/common"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type OrderService interface {
	// CreateOrder creates an order once per idempotency key. Retrying with a key that already
	// produced an order returns that order's id without further validation or side effects.
	CreateOrder(ctx context.Context, customerID uuid.UUID, lines []models.OrderLine, idempotencyKey string) (uuid.UUID, error)
	ListOrders(ctx context.Context, filter *models.OrderListFilter) (*models.PagedResult[models.OrderListItem], error)
	GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

type orderService struct {
	orderRepo    repositories.OrderRepository
	queryRepo    repositories.OrderQueryRepository
	customerRepo repositories.CustomerRepository
	productRepo  repositories.ProductRepository
	cacheService caching.CacheService
}

// NewOrderService wires the order use cases. cacheService may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, queryRepo repositories.OrderQueryRepository, customerRepo repositories.CustomerRepository, productRepo repositories.ProductRepository, cacheService caching.CacheService) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		queryRepo:    queryRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		cacheService: cacheService,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, customerID uuid.UUID, lines []models.OrderLine, idempotencyKey string) (uuid.UUID, error) {
	logger := common.LoggerFromContext(ctx).WithFields(log.Fields{
		"customer_id":     customerID,
		"idempotency_key": idempotencyKey,
	})

	if strings.TrimSpace(idempotencyKey) == "" {
		metrics.OrdersTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return uuid.Nil, fmt.Errorf("%w: idempotency key is required", models.ErrInvalidArgument)
	}
	if lines == nil {
		metrics.OrdersTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return uuid.Nil, fmt.Errorf("%w: item list is required for key %q", models.ErrInvalidArgument, idempotencyKey)
	}

	if id, found, err := s.lookupCommitted(ctx, logger, idempotencyKey); err != nil {
		return uuid.Nil, err
	} else if found {
		logger.WithField("order_id", id).Info("Replaying order for idempotency key")
		metrics.OrdersTotal.WithLabelValues(metrics.OutcomeReplayed).Inc()
		return id, nil
	}

	record, err := s.orderRepo.GetIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return uuid.Nil, fmt.Errorf("look up idempotency key %q: %w", idempotencyKey, err)
	}
	if record != nil {
		// The owner may have committed since the first lookup
		id, found, err := s.orderRepo.GetOrderIDByKey(ctx, idempotencyKey)
		if err != nil {
			return uuid.Nil, fmt.Errorf("look up order for key %q: %w", idempotencyKey, err)
		}
		if found {
			metrics.OrdersTotal.WithLabelValues(metrics.OutcomeReplayed).Inc()
			s.rememberKey(ctx, logger, idempotencyKey, id)
			return id, nil
		}
		metrics.OrdersTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return uuid.Nil, fmt.Errorf("%w: key %q is in use by a request that has not completed", models.ErrDuplicateRequest, idempotencyKey)
	}

	order, decrements, err := s.buildOrder(ctx, customerID, lines)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return uuid.Nil, err
	}
	if err := order.AttachIdempotencyKey(idempotencyKey); err != nil {
		return uuid.Nil, err
	}

	key := &models.IdempotencyKey{Key: idempotencyKey, CreatedAt: time.Now().UTC()}
	start := time.Now()
	id, err := s.orderRepo.SaveOrderTransaction(ctx, order, key, decrements)
	metrics.OrderCommitDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if !errors.Is(err, models.ErrIdempotencyConflict) {
			logger.WithError(err).Error("Order commit failed")
			metrics.OrdersTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			return uuid.Nil, fmt.Errorf("%w: %w", models.ErrCommitFailure, err)
		}

		// Another request committed under the same key first
		winner, found, lookupErr := s.orderRepo.GetOrderIDByKey(ctx, idempotencyKey)
		if lookupErr != nil {
			metrics.OrdersTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			return uuid.Nil, fmt.Errorf("%w: recheck key %q: %w", models.ErrCommitFailure, idempotencyKey, lookupErr)
		}
		if !found {
			metrics.OrdersTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			return uuid.Nil, fmt.Errorf("%w: key %q is in use by a request that has not completed", models.ErrDuplicateRequest, idempotencyKey)
		}

		logger.WithField("order_id", winner).Warn("Recovered order from concurrent commit")
		metrics.OrdersTotal.WithLabelValues(metrics.OutcomeRecovered).Inc()
		s.rememberKey(ctx, logger, idempotencyKey, winner)
		return winner, nil
	}

	logger.WithFields(log.Fields{
		"order_id": id,
		"total":    order.TotalAmount.StringFixed(2),
		"items":    len(order.Items),
	}).Info("Order created")
	metrics.OrdersTotal.WithLabelValues(metrics.OutcomeCreated).Inc()
	s.rememberKey(ctx, logger, idempotencyKey, id)
	s.evictProducts(ctx, logger, decrements)
	return id, nil
}

// lookupCommitted checks the replay cache, then the store, for an order already bound to key.
// A cached id is only trusted while the store still holds that order.
func (s *orderService) lookupCommitted(ctx context.Context, logger *log.Entry, key string) (uuid.UUID, bool, error) {
	if s.cacheService != nil {
		id, found, err := s.cacheService.GetOrderIDForKey(ctx, key)
		switch {
		case err != nil:
			logger.WithError(err).Warn("Replay cache unavailable")
		case found:
			_, err := s.orderRepo.GetByID(ctx, id)
			if err == nil {
				return id, true, nil
			}
			logger.WithError(err).WithField("order_id", id).Warn("Ignoring cached order id the store cannot confirm")
		}
	}

	id, found, err := s.orderRepo.GetOrderIDByKey(ctx, key)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("look up order for key %q: %w", key, err)
	}
	if found {
		s.rememberKey(ctx, logger, key, id)
	}
	return id, found, nil
}

// buildOrder validates the request against current customers and stock and snapshots prices.
func (s *orderService) buildOrder(ctx context.Context, customerID uuid.UUID, lines []models.OrderLine) (*models.Order, []models.StockDecrement, error) {
	if _, err := s.customerRepo.GetByID(ctx, customerID); err != nil {
		return nil, nil, err
	}

	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: order for customer %s has no items", models.ErrInvalidOrder, customerID)
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: line %d for product %s has quantity %d", models.ErrInvalidQuantity, i+1, line.ProductID, line.Quantity)
		}
	}

	products := make(map[uuid.UUID]*models.Product, len(lines))
	demand := make(map[uuid.UUID]int, len(lines))
	var productOrder []uuid.UUID
	for _, line := range lines {
		if _, seen := products[line.ProductID]; !seen {
			product, err := s.productRepo.GetByID(ctx, line.ProductID)
			if err != nil {
				return nil, nil, err
			}
			products[line.ProductID] = product
			productOrder = append(productOrder, line.ProductID)
		}
		demand[line.ProductID] = addDemand(demand[line.ProductID], line.Quantity)
	}

	decrements := make([]models.StockDecrement, 0, len(productOrder))
	for _, productID := range productOrder {
		product := products[productID]
		if demand[productID] > product.StockQty {
			return nil, nil, &models.InsufficientStockError{
				ProductID:   productID,
				ProductName: product.Name,
				Available:   product.StockQty,
				Requested:   demand[productID],
			}
		}
		decrements = append(decrements, models.StockDecrement{ProductID: productID, Quantity: demand[productID]})
	}

	items := make([]*models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item, err := models.NewOrderItem(line.ProductID, line.Quantity, products[line.ProductID].Price)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}

	built, err := models.NewOrder(customerID, items)
	if err != nil {
		return nil, nil, err
	}
	return built, decrements, nil
}

// addDemand sums positive quantities, saturating at math.MaxInt so no total wraps below stock.
func addDemand(total, quantity int) int {
	if quantity > math.MaxInt-total {
		return math.MaxInt
	}
	return total + quantity
}

func (s *orderService) rememberKey(ctx context.Context, logger *log.Entry, key string, orderID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.SetOrderIDForKey(ctx, key, orderID); err != nil {
		logger.WithError(err).Warn("Failed to cache idempotency key")
	}
}

func (s *orderService) evictProducts(ctx context.Context, logger *log.Entry, decrements []models.StockDecrement) {
	if s.cacheService == nil {
		return
	}
	for _, d := range decrements {
		if err := s.cacheService.DeleteProduct(ctx, d.ProductID); err != nil {
			logger.WithError(err).WithField("product_id", d.ProductID).Warn("Failed to evict cached product")
		}
	}
}

// ListOrders lists orders matching filter
func (s *orderService) ListOrders(ctx context.Context, filter *models.OrderListFilter) (*models.PagedResult[models.OrderListItem], error) {
	if filter != nil && filter.SortBy != "" && filter.SortBy != models.SortDateAsc && filter.SortBy != models.SortDateDesc {
		return nil, fmt.Errorf("%w: unknown sort %q", models.ErrInvalidArgument, filter.SortBy)
	}
	return s.queryRepo.ListOrders(ctx, filter)
}

// GetOrderDetails returns an order with customer and product names resolved
func (s *orderService) GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	return s.queryRepo.GetOrderDetails(ctx, id)
}

// UpdateOrderStatus applies a guarded status transition
func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if err := order.TransitionTo(status); err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateStatus(ctx, id, from, status); err != nil {
		return nil, err
	}

	common.LoggerFromContext(ctx).WithFields(log.Fields{
		"order_id": id,
		"from":     from,
		"to":       status,
	}).Info("Order status updated")
	return order, nil
}
