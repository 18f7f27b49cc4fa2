package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// orderTransitions lists the statuses reachable from each status. Paid and Cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      nil,
	OrderStatusCancelled: nil,
}

// ParseOrderStatus parses a status name case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderTransitions[status]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidArgument, s)
	}
	return status, nil
}

// Order owns its items. Customer and product references are plain ids.
type Order struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	CustomerID     uuid.UUID       `json:"customer_id" db:"customer_id"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty" db:"idempotency_key"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status         OrderStatus     `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	Items          []OrderItem     `json:"items"`
}

// NewOrder creates an order in the CREATED status and attaches items to it.
func NewOrder(customerID uuid.UUID, items []*OrderItem) (*Order, error) {
	order := &Order{
		ID:          uuid.New(),
		CustomerID:  customerID,
		TotalAmount: decimal.Zero,
		Status:      OrderStatusCreated,
		CreatedAt:   time.Now().UTC(),
		Items:       make([]OrderItem, 0, len(items)),
	}

	for _, item := range items {
		if err := order.AddItem(item); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// AddItem appends item, assigns it to this order and recomputes the total.
func (o *Order) AddItem(item *OrderItem) error {
	if item == nil {
		return fmt.Errorf("%w: item cannot be nil", ErrInvalidItem)
	}

	line := *item
	line.OrderID = o.ID
	o.Items = append(o.Items, line)
	o.recalculateTotal()
	return nil
}

// AttachIdempotencyKey links the request key to the order. A second call replaces the key.
func (o *Order) AttachIdempotencyKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: idempotency key is required for order %s", ErrInvalidArgument, o.ID)
	}
	o.IdempotencyKey = &key
	return nil
}

// SetStatus sets the status without checking the transition.
func (o *Order) SetStatus(status OrderStatus) {
	o.Status = status
}

// CanTransitionTo reports whether status is reachable from the current status.
func (o *Order) CanTransitionTo(status OrderStatus) bool {
	for _, next := range orderTransitions[o.Status] {
		if next == status {
			return true
		}
	}
	return false
}

// TransitionTo moves the order to status, rejecting transitions out of terminal states.
func (o *Order) TransitionTo(status OrderStatus) error {
	if _, ok := orderTransitions[status]; !ok {
		return fmt.Errorf("%w: unknown order status %q", ErrInvalidArgument, status)
	}
	if !o.CanTransitionTo(status) {
		return fmt.Errorf("%w: order %s cannot move from %s to %s", ErrInvalidStatusTransition, o.ID, o.Status, status)
	}
	o.Status = status
	return nil
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal)
	}
	o.TotalAmount = total
}
