package repositories

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps customers, products and orders in process memory. A single mutex
// serializes writers, so SaveOrderTransaction is all-or-nothing and idempotency keys stay unique.
type MemoryStore struct {
	mu         sync.RWMutex
	customers  map[uuid.UUID]models.Customer
	products   map[uuid.UUID]models.Product
	orders     map[uuid.UUID]*models.Order
	keys       map[string]models.IdempotencyKey
	keyToOrder map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:  make(map[uuid.UUID]models.Customer),
		products:   make(map[uuid.UUID]models.Product),
		orders:     make(map[uuid.UUID]*models.Order),
		keys:       make(map[string]models.IdempotencyKey),
		keyToOrder: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Customers() CustomerRepository { return memoryCustomers{s} }

func (s *MemoryStore) Products() ProductRepository { return memoryProducts{s} }

func (s *MemoryStore) Orders() OrderRepository { return memoryOrders{s} }

func (s *MemoryStore) OrderQueries() OrderQueryRepository { return memoryOrderQueries{s} }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type memoryCustomers struct{ s *MemoryStore }

func (m memoryCustomers) Create(_ context.Context, customer *models.Customer) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.customers {
		if existing.Document == customer.Document {
			return fmt.Errorf("%w: customer document %s already registered", models.ErrConflict, customer.Document)
		}
	}
	m.s.customers[customer.ID] = *customer
	return nil
}

func (m memoryCustomers) GetByID(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	customer, ok := m.s.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCustomerNotFound, id)
	}
	return &customer, nil
}

func (m memoryCustomers) Update(_ context.Context, customer *models.Customer) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.customers[customer.ID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrCustomerNotFound, customer.ID)
	}
	for id, other := range m.s.customers {
		if id != customer.ID && other.Document == customer.Document {
			return fmt.Errorf("%w: customer document %s already registered", models.ErrConflict, customer.Document)
		}
	}
	existing.Name = customer.Name
	existing.Email = customer.Email
	existing.Document = customer.Document
	m.s.customers[customer.ID] = existing
	return nil
}

func (m memoryCustomers) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.customers[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrCustomerNotFound, id)
	}
	for _, order := range m.s.orders {
		if order.CustomerID == id {
			return fmt.Errorf("%w: customer %s has orders", models.ErrConflict, id)
		}
	}
	delete(m.s.customers, id)
	return nil
}

func (m memoryCustomers) List(_ context.Context, limit, offset int) ([]*models.Customer, error) {
	limit, offset = normalizePage(limit, offset, 50)
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	all := make([]*models.Customer, 0, len(m.s.customers))
	for _, customer := range m.s.customers {
		c := customer
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), nil
}

type memoryProducts struct{ s *MemoryStore }

func (m memoryProducts) Create(_ context.Context, product *models.Product) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.products {
		if existing.SKU == product.SKU {
			return fmt.Errorf("%w: product sku %s already exists", models.ErrConflict, product.SKU)
		}
	}
	m.s.products[product.ID] = *product
	return nil
}

func (m memoryProducts) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	product, ok := m.s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	return &product, nil
}

func (m memoryProducts) Update(_ context.Context, product *models.Product) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.products[product.ID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrProductNotFound, product.ID)
	}
	existing.Name = product.Name
	existing.Price = product.Price
	existing.StockQty = product.StockQty
	existing.IsActive = product.IsActive
	m.s.products[product.ID] = existing
	return nil
}

func (m memoryProducts) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.products[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	for _, order := range m.s.orders {
		for _, item := range order.Items {
			if item.ProductID == id {
				return fmt.Errorf("%w: product %s is referenced by orders", models.ErrConflict, id)
			}
		}
	}
	delete(m.s.products, id)
	return nil
}

func (m memoryProducts) List(_ context.Context, filter *models.ProductFilter) ([]*models.Product, error) {
	if filter == nil {
		filter = &models.ProductFilter{}
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 50)
	query := strings.ToLower(filter.Query)

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	all := []*models.Product{}
	for _, product := range m.s.products {
		if query != "" && !strings.Contains(strings.ToLower(product.Name), query) && !strings.Contains(strings.ToLower(product.SKU), query) {
			continue
		}
		if filter.ActiveOnly && !product.IsActive {
			continue
		}
		if filter.MaxStock != nil && product.StockQty > *filter.MaxStock {
			continue
		}
		p := product
		all = append(all, &p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), nil
}

type memoryOrders struct{ s *MemoryStore }

func (m memoryOrders) SaveOrderTransaction(_ context.Context, order *models.Order, key *models.IdempotencyKey, decrements []models.StockDecrement) (uuid.UUID, error) {
	if order == nil || key == nil {
		return uuid.Nil, fmt.Errorf("%w: order and idempotency key are required", models.ErrInvalidArgument)
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, exists := m.s.keys[key.Key]; exists {
		return uuid.Nil, fmt.Errorf("%w: key %q", models.ErrIdempotencyConflict, key.Key)
	}

	// Validate every decrement before mutating anything
	demand := make(map[uuid.UUID]int, len(decrements))
	for _, d := range decrements {
		if d.Quantity <= 0 {
			return uuid.Nil, fmt.Errorf("%w: decrement for product %s has quantity %d", models.ErrInvalidArgument, d.ProductID, d.Quantity)
		}
		product, ok := m.s.products[d.ProductID]
		if !ok {
			return uuid.Nil, fmt.Errorf("%w: %s", models.ErrProductNotFound, d.ProductID)
		}
		// demand never exceeds stock here, so the subtraction cannot wrap
		if d.Quantity > product.StockQty-demand[d.ProductID] {
			requested := math.MaxInt
			if d.Quantity <= math.MaxInt-demand[d.ProductID] {
				requested = demand[d.ProductID] + d.Quantity
			}
			return uuid.Nil, &models.InsufficientStockError{
				ProductID:   d.ProductID,
				ProductName: product.Name,
				Available:   product.StockQty,
				Requested:   requested,
			}
		}
		demand[d.ProductID] += d.Quantity
	}

	for _, d := range decrements {
		product := m.s.products[d.ProductID]
		product.StockQty -= d.Quantity
		m.s.products[d.ProductID] = product
	}

	stored := *order
	stored.Items = append([]models.OrderItem(nil), order.Items...)
	k := key.Key
	stored.IdempotencyKey = &k

	m.s.keys[key.Key] = *key
	m.s.orders[order.ID] = &stored
	m.s.keyToOrder[key.Key] = order.ID
	return order.ID, nil
}

func (m memoryOrders) GetIdempotencyKey(_ context.Context, key string) (*models.IdempotencyKey, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	record, ok := m.s.keys[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m memoryOrders) GetOrderIDByKey(_ context.Context, key string) (uuid.UUID, bool, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	id, ok := m.s.keyToOrder[key]
	return id, ok, nil
}

func (m memoryOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	order, ok := m.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	copied := *order
	copied.Items = append([]models.OrderItem(nil), order.Items...)
	return &copied, nil
}

func (m memoryOrders) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.OrderStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	order, ok := m.s.orders[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if order.Status != from {
		return fmt.Errorf("%w: order %s is %s, not %s", models.ErrInvalidStatusTransition, id, order.Status, from)
	}
	order.SetStatus(to)
	return nil
}

type memoryOrderQueries struct{ s *MemoryStore }

func (m memoryOrderQueries) customerName(id uuid.UUID) string {
	if customer, ok := m.s.customers[id]; ok {
		return customer.Name
	}
	return models.UnknownCustomerName
}

func (m memoryOrderQueries) ListOrders(_ context.Context, filter *models.OrderListFilter) (*models.PagedResult[models.OrderListItem], error) {
	if filter == nil {
		filter = &models.OrderListFilter{}
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 10)
	nameQuery := strings.ToLower(filter.CustomerName)

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matched := []models.OrderListItem{}
	for _, order := range m.s.orders {
		name := m.customerName(order.CustomerID)
		if nameQuery != "" && !strings.Contains(strings.ToLower(name), nameQuery) {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		matched = append(matched, models.OrderListItem{
			ID:           order.ID,
			CustomerName: name,
			TotalAmount:  order.TotalAmount,
			Status:       order.Status,
			CreatedAt:    order.CreatedAt,
		})
	}

	desc := filter.SortBy == models.SortDateDesc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if desc {
			return a.ID.String() > b.ID.String()
		}
		return a.ID.String() < b.ID.String()
	})

	return &models.PagedResult[models.OrderListItem]{
		Items:      page(matched, limit, offset),
		TotalCount: len(matched),
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func (m memoryOrderQueries) GetOrderDetails(_ context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	order, ok := m.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}

	details := &models.OrderDetails{
		ID:           order.ID,
		CustomerID:   order.CustomerID,
		CustomerName: m.customerName(order.CustomerID),
		TotalAmount:  order.TotalAmount,
		Status:       order.Status,
		CreatedAt:    order.CreatedAt,
		Items:        make([]models.OrderDetailsItem, 0, len(order.Items)),
	}
	if customer, ok := m.s.customers[order.CustomerID]; ok {
		details.CustomerDocument = customer.Document
	}

	for _, item := range order.Items {
		name := models.UnknownProductName
		if product, ok := m.s.products[item.ProductID]; ok {
			name = product.Name
		}
		details.Items = append(details.Items, models.OrderDetailsItem{
			ProductID:   item.ProductID,
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return details, nil
}
