package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order. UnitPrice is the product price captured when the
// order was built and LineTotal is fixed at construction.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total" db:"line_total"`
}

// NewOrderItem builds a line item for productID. The owning order id stays unset until the
// item is added to an order.
func NewOrderItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*OrderItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity for product %s must be greater than zero, got %d", ErrInvalidItem, productID, quantity)
	}
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit price for product %s cannot be negative", ErrInvalidItem, productID)
	}

	return &OrderItem{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// OrderLine is a requested (product, quantity) pair before validation.
type OrderLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}
