package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductFilter holds list criteria for product queries
type ProductFilter struct {
	Query      string `json:"query,omitempty"`       // Matches name or SKU
	ActiveOnly bool   `json:"active_only,omitempty"` // Only active products
	MaxStock   *int   `json:"max_stock,omitempty"`   // Stock at or below this level
	Limit      int    `json:"limit,omitempty"`       // Page size (default: 50)
	Offset     int    `json:"offset,omitempty"`      // Page offset
}

type Product struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	SKU       string          `json:"sku" db:"sku"`
	Price     decimal.Decimal `json:"price" db:"price"`
	StockQty  int             `json:"stock_qty" db:"stock_qty"`
	IsActive  bool            `json:"is_active" db:"is_active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// StockDecrement is the accumulated demand for one product within an order.
type StockDecrement struct {
	ProductID uuid.UUID
	Quantity  int
}
