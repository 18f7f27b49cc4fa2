package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error kinds surfaced by order creation and the supporting CRUD operations.
// Callers match them with errors.Is; messages always carry the offending id or key.
var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrInvalidItem             = errors.New("invalid order item")
	ErrInvalidOrder            = errors.New("invalid order")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrProductNotFound         = errors.New("product not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrDuplicateRequest        = errors.New("duplicate request")
	ErrIdempotencyConflict     = errors.New("idempotency key already recorded")
	ErrCommitFailure           = errors.New("order commit failed")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrConflict                = errors.New("conflict")
)

// InsufficientStockError reports accumulated demand that exceeds the available stock of a product.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("insufficient stock for product '%s' (%s): available %d, requested %d",
			e.ProductName, e.ProductID, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
